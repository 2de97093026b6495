package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amariwest/folio/internal/profile"
)

const (
	// fallbackConfidence is reported for rule-based answers. Deliberately
	// low so clients can render a "limited mode" hint.
	fallbackConfidence = 0.3

	// fallbackStreamDelay is the per-word delay when simulating a stream so
	// the client's incremental-rendering contract still holds offline.
	fallbackStreamDelay = 30 * time.Millisecond
)

// Fallback is a deterministic keyword responder over the raw content model.
// It needs no embeddings, no database, and no provider credentials, so the
// product stays demo-able when every RAG dependency is down.
type Fallback struct {
	profile profile.Profile
}

// NewFallback creates a Fallback over the given corpus.
func NewFallback(p profile.Profile) *Fallback {
	return &Fallback{profile: p}
}

// rule matches a set of keywords to a canned-but-grounded response builder.
type rule struct {
	keywords []string
	respond  func(p profile.Profile) (string, []Citation)
}

var fallbackRules = []rule{
	{
		keywords: []string{"ai", "machine learning", "ml", "rag", "llm", "vision"},
		respond: func(p profile.Profile) (string, []Citation) {
			var names []string
			var cites []Citation
			for _, proj := range p.Projects {
				names = append(names, proj.Title)
				cites = append(cites, projectCitation(proj))
			}
			return fmt.Sprintf("%s works extensively with applied AI — retrieval systems, embeddings, and computer vision. Recent projects include %s.",
				p.Personal.Name, strings.Join(names, "; ")), cites
		},
	},
	{
		keywords: []string{"echolens", "accessib", "blind", "visually impaired"},
		respond: func(p profile.Profile) (string, []Citation) {
			for _, proj := range p.Projects {
				if strings.Contains(strings.ToLower(proj.Title), "echolens") {
					return fmt.Sprintf("%s (%s). %s %s", proj.Title, proj.Year, proj.Summary, proj.Impact),
						[]Citation{projectCitation(proj)}
				}
			}
			return "", nil
		},
	},
	{
		keywords: []string{"experience", "work", "career", "job", "company", "role"},
		respond: func(p profile.Profile) (string, []Citation) {
			var parts []string
			var cites []Citation
			for _, exp := range p.Experiences {
				parts = append(parts, fmt.Sprintf("%s at %s (%s)", exp.Title, exp.Company, exp.Period))
				cites = append(cites, Citation{
					Type: TypeExperience, ID: exp.ID,
					Title: fmt.Sprintf("%s at %s", exp.Title, exp.Company),
					URL:   "/experience/" + exp.ID,
				})
			}
			return fmt.Sprintf("%s's recent roles: %s.", p.Personal.Name, strings.Join(parts, "; ")), cites
		},
	},
	{
		keywords: []string{"education", "degree", "university", "study", "studied"},
		respond: func(p profile.Profile) (string, []Citation) {
			var parts []string
			var cites []Citation
			for _, edu := range p.Education {
				parts = append(parts, fmt.Sprintf("%s from %s (%s)", edu.Degree, edu.School, edu.Year))
				cites = append(cites, Citation{
					Type: TypeEducation, ID: edu.ID,
					Title: fmt.Sprintf("%s, %s", edu.Degree, edu.School),
					URL:   "/education/" + edu.ID,
				})
			}
			return fmt.Sprintf("%s holds a %s.", p.Personal.Name, strings.Join(parts, "; ")), cites
		},
	},
	{
		keywords: []string{"skill", "technolog", "stack", "language"},
		respond: func(p profile.Profile) (string, []Citation) {
			var cats []string
			for _, cat := range p.Personal.Skills {
				cats = append(cats, cat.Name+": "+strings.Join(cat.Skills, ", "))
			}
			return "Core skills — " + strings.Join(cats, ". ") + ".", nil
		},
	},
	{
		keywords: []string{"contact", "hire", "available", "freelance", "consult", "reach"},
		respond: func(p profile.Profile) (string, []Citation) {
			return fmt.Sprintf("%s takes on a small number of consulting engagements per year. The fastest way to start a conversation is to book an intro call: %s",
				p.Personal.Name, p.Personal.CalendarURL), nil
		},
	},
	{
		keywords: []string{"project"},
		respond: func(p profile.Profile) (string, []Citation) {
			var names []string
			var cites []Citation
			for _, proj := range p.Projects {
				names = append(names, fmt.Sprintf("%s (%s)", proj.Title, proj.Year))
				cites = append(cites, projectCitation(proj))
			}
			return "Featured projects: " + strings.Join(names, "; ") + ".", cites
		},
	},
}

func projectCitation(proj profile.Project) Citation {
	return Citation{Type: TypeProject, ID: proj.ID, Title: proj.Title, URL: "/projects/" + proj.ID}
}

// matchesKeyword reports whether the lowered query contains the keyword.
// Phrases match as substrings; single words match as a prefix of some query
// word, so short keywords like "ai" cannot fire inside "Amari".
func matchesKeyword(lowered string, words []string, kw string) bool {
	if strings.ContainsRune(kw, ' ') {
		return strings.Contains(lowered, kw)
	}
	for _, w := range words {
		if strings.HasPrefix(w, kw) {
			return true
		}
	}
	return false
}

// Respond matches the query against the keyword rules and returns the first
// hit front-to-back, or a generic pointer at the bio when nothing matches.
func (f *Fallback) Respond(query string) *Answer {
	lowered := strings.ToLower(query)
	words := strings.Fields(lowered)

	for _, r := range fallbackRules {
		for _, kw := range r.keywords {
			if matchesKeyword(lowered, words, kw) {
				text, cites := r.respond(f.profile)
				if text == "" {
					continue
				}
				return &Answer{Answer: text, Citations: cites, Confidence: fallbackConfidence}
			}
		}
	}

	per := f.profile.Personal
	return &Answer{
		Answer: fmt.Sprintf("%s %s. Ask about specific projects, experience, or availability — or book an intro call: %s",
			per.Name+" is a", per.Headline, per.CalendarURL),
		Confidence: fallbackConfidence,
	}
}

// Stream delivers a fallback answer word by word with a fixed delay,
// preserving the client's incremental-rendering contract. The answer is
// returned so the caller can reuse citations and confidence.
func (f *Fallback) Stream(ctx context.Context, query string, onChunk func(text string) error) (*Answer, error) {
	answer := f.Respond(query)

	words := strings.Fields(answer.Answer)
	for i, w := range words {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fallbackStreamDelay):
		}
		chunk := w
		if i < len(words)-1 {
			chunk += " "
		}
		if err := onChunk(chunk); err != nil {
			return nil, err
		}
	}

	return answer, nil
}
