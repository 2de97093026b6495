// Package profile defines the portfolio content model.
//
// The profile is the ground-truth corpus for the assistant: typed records
// for projects, work experience, education, and personal information. It is
// static in-memory data with no I/O; the rag package derives retrievable
// chunks from it.
package profile

// Project is a single portfolio project.
type Project struct {
	ID       string
	Title    string
	Year     string
	Category string
	Tags     []string

	Summary  string
	Problem  string
	Approach string
	Impact   string
	Metrics  []string
	Tech     []string
	Role     string
}

// Experience is one professional position.
type Experience struct {
	ID      string
	Company string
	Title   string
	Period  string
	Year    string

	Summary      string
	Highlights   []string
	Technologies []string
}

// Education is one degree or program.
type Education struct {
	ID          string
	School      string
	Degree      string
	Year        string
	Coursework  []string
	Achievement string
	Projects    string
}

// FAQ is a question visitors commonly ask, with a canonical answer.
type FAQ struct {
	Question string
	Answer   string
}

// SkillCategory groups related skills under a named category.
type SkillCategory struct {
	Name   string
	Skills []string
}

// Personal holds everything about the person that is not tied to a single
// project, job, or degree.
type Personal struct {
	Name     string
	Headline string
	Bio      string

	Skills      []SkillCategory
	StoryBeats  []string
	Philosophy  string
	Interests   []string
	FAQs        []FAQ
	WorkStyle   []string
	ContactURL  string
	CalendarURL string
}

// Profile is the complete content corpus.
type Profile struct {
	Personal    Personal
	Projects    []Project
	Experiences []Experience
	Education   []Education
}
