package rag

// Chunk type constants. These are the values stored in Metadata.Type and
// drive both retrieval filtering and citation eligibility.
const (
	TypeProject    = "project"
	TypeExperience = "experience"
	TypeEducation  = "education"
	TypeBio        = "bio"
	TypeSkill      = "skill"
	TypeStory      = "story"
	TypePhilosophy = "philosophy"
	TypeInterests  = "interests"
	TypeFAQ        = "faq"
	TypeWorkStyle  = "workstyle"
)

// Metadata describes where a chunk came from and how it may be filtered.
type Metadata struct {
	Type     string   `json:"type"`
	ItemID   string   `json:"itemId"`
	Title    string   `json:"title"`
	Year     string   `json:"year,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Chunk is a short, independently retrievable passage derived from one facet
// of one content record. IDs are deterministic (source item ID plus role
// suffix) so re-chunking upserts in place instead of growing the store.
type Chunk struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Record is a chunk paired with its embedding vector, ready for storage.
type Record struct {
	Chunk
	Embedding []float32
}

// Retrieved is a chunk returned from search with its similarity score in
// [0, 1]. Transient, produced per query, never persisted.
type Retrieved struct {
	Chunk
	Similarity float32 `json:"similarity"`
}

// Citation is a user-facing reference back to a content record that informed
// an answer. Only types with a detail view (project, experience, education)
// are cited.
type Citation struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Context is the client-supplied scoping hint: when enabled, retrieval is
// constrained or boosted toward one content item the visitor is viewing.
type Context struct {
	Enabled  bool   `json:"enabled"`
	ItemType string `json:"itemType,omitempty"`
	ItemID   string `json:"itemId,omitempty"`
}

// Filter restricts search results by chunk metadata. Zero fields match
// everything. Filtering is always applied client-side after the database
// query; the remote filter pushdown is not trusted for correctness.
type Filter struct {
	Type     string
	ItemID   string
	Category string
}

// Matches reports whether the metadata satisfies every set field.
func (f Filter) Matches(m Metadata) bool {
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.ItemID != "" && m.ItemID != f.ItemID {
		return false
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	return true
}

// IsZero reports whether no filter fields are set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}
