package store

import "time"

type File struct {
	ID          int64
	Path        string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Span is a needle's position. Lines and columns are 1-based.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Needle is a persisted needle. Span is nil for file-scoped needles.
type Needle struct {
	ID     int64
	FileID int64
	Tag    string
	Value  string
	Key    string
	Span   *Span
}

// Edge is a persisted parent→child inheritance relation.
type Edge struct {
	ID     int64
	Parent string
	Child  string
}
