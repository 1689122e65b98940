package models

// Role marks which half of an annotation sample a document is.
type Role string

const (
	RoleSource  Role = "source"
	RoleSummary Role = "summary"
)

// Opposite returns the other half of the sample.
func (r Role) Opposite() Role {
	if r == RoleSource {
		return RoleSummary
	}
	return RoleSource
}

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleSource || r == RoleSummary
}

// Span is a sentence-level slice of a document with its character offset
// into the original text. The sentence delimiter is not part of Text.
type Span struct {
	Text   string
	Offset int
}

// Chunk is a persisted Span with its store identity. Chunks are written once
// at ingestion and never mutated.
type Chunk struct {
	ID       int64
	SampleID int64
	Role     Role
	Seq      int
	Offset   int
	Text     string
}

// Neighbor is one hit of a restricted nearest-neighbor search.
type Neighbor struct {
	ChunkID  int64
	Distance float32
}

// Match is one ranked alignment result in the opposite document. Offset and
// Length are character coordinates in that document's original text. ToDoc is
// true when the selection came from the summary, so the match points into the
// source document.
type Match struct {
	Score  float32 `json:"score"`
	Offset int     `json:"offset"`
	Length int     `json:"len"`
	ToDoc  bool    `json:"to_doc"`
}

// DocumentPair is one (source, summary) sample as read from an input file.
type DocumentPair struct {
	Source  string `json:"source"`
	Summary string `json:"summary"`
}

// EmbeddedDocument is one role's worth of chunked and embedded text, ready
// for an atomic store write. Vectors[i] belongs to Spans[i].
type EmbeddedDocument struct {
	SampleID int64
	Role     Role
	Text     string
	Spans    []Span
	Vectors  [][]float32
}
