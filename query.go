package clangdex

import (
	"fmt"

	"github.com/jward/clangdex/internal/store"
)

// QueryBuilder reads the persisted index.
type QueryBuilder struct {
	store *store.Store
}

// Location represents a source code position range.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// NeedleHit is a persisted needle together with its file.
type NeedleHit struct {
	Tag   string
	Value string
	Key   string
	// Location.StartLine is 0 for file-scoped needles. Line needles always
	// start on line 1 or later.
	Location Location
}

// FileScoped reports whether the needle applies to the whole file.
func (h NeedleHit) FileScoped() bool { return h.Location.StartLine == 0 }

// Files returns every indexed file ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.Files()
}

// NeedlesInFile returns every needle of path, file-scoped ones first.
// Returns nil with no error if the file is not indexed.
func (q *QueryBuilder) NeedlesInFile(path string) ([]NeedleHit, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("needles in file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	needles, err := q.store.NeedlesByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("needles in file: %w", err)
	}
	return hits(needles, map[int64]string{f.ID: f.Path}), nil
}

// NeedlesOnLine returns the line needles of path starting on line.
func (q *QueryBuilder) NeedlesOnLine(path string, line int) ([]NeedleHit, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("needles on line: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	needles, err := q.store.NeedlesOnLine(f.ID, line)
	if err != nil {
		return nil, fmt.Errorf("needles on line: %w", err)
	}
	return hits(needles, map[int64]string{f.ID: f.Path}), nil
}

// Search finds needles by value across the project, optionally limited to
// tags. A trailing '*' in value matches by prefix.
func (q *QueryBuilder) Search(value string, tags ...string) ([]NeedleHit, error) {
	needles, err := q.store.SearchNeedles(value, tags...)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(needles) == 0 {
		return nil, nil
	}
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	paths := make(map[int64]string, len(files))
	for _, f := range files {
		paths[f.ID] = f.Path
	}
	return hits(needles, paths), nil
}

func hits(needles []*store.Needle, paths map[int64]string) []NeedleHit {
	out := make([]NeedleHit, len(needles))
	for i, n := range needles {
		out[i] = NeedleHit{Tag: n.Tag, Value: n.Value, Key: n.Key, Location: Location{File: paths[n.FileID]}}
		if n.Span != nil {
			out[i].Location.StartLine = n.Span.StartLine
			out[i].Location.StartCol = n.Span.StartCol
			out[i].Location.EndLine = n.Span.EndLine
			out[i].Location.EndCol = n.Span.EndCol
		}
	}
	return out
}

// NewQueryBuilder wraps an already open Store, e.g. for read-only tools.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}
