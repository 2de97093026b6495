package rag

import (
	"fmt"
	"strings"

	"github.com/amariwest/folio/internal/profile"
)

// ChunkProfile splits the content corpus into retrievable passages.
//
// Granularity favors retrieval precision over compactness: one fact or one
// highlight per chunk, because embedding similarity degrades when a chunk
// mixes unrelated facts. Chunk IDs are stable strings built from the source
// item ID plus a role suffix, so re-running the chunker over unchanged
// content produces byte-identical IDs and indexing stays idempotent.
//
// Pure and total: empty optional fields simply omit their chunk.
func ChunkProfile(p profile.Profile) []Chunk {
	var chunks []Chunk

	for _, proj := range p.Projects {
		chunks = append(chunks, chunkProject(proj)...)
	}
	for _, exp := range p.Experiences {
		chunks = append(chunks, chunkExperience(exp)...)
	}
	for _, edu := range p.Education {
		chunks = append(chunks, chunkEducation(edu)...)
	}
	chunks = append(chunks, chunkPersonal(p.Personal)...)

	return chunks
}

func chunkProject(proj profile.Project) []Chunk {
	meta := Metadata{
		Type:     TypeProject,
		ItemID:   proj.ID,
		Title:    proj.Title,
		Year:     proj.Year,
		Category: proj.Category,
		Tags:     proj.Tags,
	}

	var chunks []Chunk
	add := func(role, content string) {
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			ID:       proj.ID + "-" + role,
			Content:  content,
			Metadata: meta,
		})
	}

	add("summary", fmt.Sprintf("%s (%s): %s", proj.Title, proj.Year, proj.Summary))

	if proj.Problem != "" && proj.Approach != "" {
		add("problem-approach", fmt.Sprintf("Problem: %s Approach: %s", proj.Problem, proj.Approach))
	}
	add("impact", proj.Impact)

	if len(proj.Metrics) > 0 {
		add("metrics", fmt.Sprintf("Key results for %s: %s.", proj.Title, strings.Join(proj.Metrics, "; ")))
	}
	if len(proj.Tech) > 0 || proj.Role != "" {
		var parts []string
		if len(proj.Tech) > 0 {
			parts = append(parts, fmt.Sprintf("Technologies used in %s: %s.", proj.Title, strings.Join(proj.Tech, ", ")))
		}
		if proj.Role != "" {
			parts = append(parts, "Role: "+proj.Role)
		}
		add("tech", strings.Join(parts, " "))
	}

	return chunks
}

func chunkExperience(exp profile.Experience) []Chunk {
	meta := Metadata{
		Type:   TypeExperience,
		ItemID: exp.ID,
		Title:  fmt.Sprintf("%s at %s", exp.Title, exp.Company),
		Year:   exp.Year,
	}

	var chunks []Chunk
	add := func(role, content string) {
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			ID:       exp.ID + "-" + role,
			Content:  content,
			Metadata: meta,
		})
	}

	add("summary", fmt.Sprintf("%s at %s (%s): %s", exp.Title, exp.Company, exp.Period, exp.Summary))

	for i, h := range exp.Highlights {
		add(fmt.Sprintf("highlight-%d", i+1), fmt.Sprintf("At %s: %s", exp.Company, h))
	}

	if len(exp.Technologies) > 0 {
		add("tech", fmt.Sprintf("Technologies at %s: %s.", exp.Company, strings.Join(exp.Technologies, ", ")))
	}

	return chunks
}

func chunkEducation(edu profile.Education) []Chunk {
	meta := Metadata{
		Type:   TypeEducation,
		ItemID: edu.ID,
		Title:  fmt.Sprintf("%s, %s", edu.Degree, edu.School),
		Year:   edu.Year,
	}

	var chunks []Chunk
	add := func(role, content string) {
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			ID:       edu.ID + "-" + role,
			Content:  content,
			Metadata: meta,
		})
	}

	add("degree", fmt.Sprintf("%s from %s, %s.", edu.Degree, edu.School, edu.Year))

	if len(edu.Coursework) > 0 {
		add("coursework", fmt.Sprintf("Relevant coursework at %s: %s.", edu.School, strings.Join(edu.Coursework, ", ")))
	}
	add("achievements", edu.Achievement)
	add("projects", edu.Projects)

	return chunks
}

func chunkPersonal(per profile.Personal) []Chunk {
	var chunks []Chunk
	add := func(id, typ, title, content string) {
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			ID:      id,
			Content: content,
			Metadata: Metadata{
				Type:   typ,
				ItemID: "personal",
				Title:  title,
			},
		})
	}

	add("personal-bio", TypeBio, per.Name, per.Bio)

	var all []string
	for _, cat := range per.Skills {
		add("personal-skills-"+slug(cat.Name), TypeSkill,
			"Skills: "+cat.Name,
			fmt.Sprintf("%s skills: %s.", cat.Name, strings.Join(cat.Skills, ", ")))
		all = append(all, cat.Skills...)
	}
	if len(all) > 0 {
		add("personal-skills-all", TypeSkill, "Skills",
			fmt.Sprintf("Full skill set: %s.", strings.Join(all, ", ")))
	}

	for i, beat := range per.StoryBeats {
		add(fmt.Sprintf("personal-story-%d", i+1), TypeStory, "Career story", beat)
	}

	add("personal-philosophy", TypePhilosophy, "Philosophy", per.Philosophy)

	if len(per.Interests) > 0 {
		add("personal-interests", TypeInterests, "Interests",
			"Outside of work: "+strings.Join(per.Interests, ", ")+".")
	}

	for i, faq := range per.FAQs {
		add(fmt.Sprintf("personal-faq-%d", i+1), TypeFAQ, faq.Question,
			fmt.Sprintf("Q: %s A: %s", faq.Question, faq.Answer))
	}

	for i, ws := range per.WorkStyle {
		add(fmt.Sprintf("personal-workstyle-%d", i+1), TypeWorkStyle, "Work style", ws)
	}

	return chunks
}

// slug lowercases a label and replaces separators so it can be embedded in a
// deterministic chunk ID.
func slug(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, " ", "-")
	return s
}
