// Package needle projects condensed facts into search-index entries
// ("needles"). A needle without a span applies to the whole file; a needle
// with a span applies to one line.
package needle

import "github.com/jward/clangdex/internal/facts"

// Needle is one unit of searchable index data. Value and Key are the pair
// of values plucked from a record, e.g. qualified name and display name.
// Key may be empty.
type Needle struct {
	Tag   string
	Value string
	Key   string
	Span  *facts.Span // nil for file-scoped needles
}

// Arity is 2 for file needles (tag, values) and 3 for line needles
// (tag, values, span).
func (n Needle) Arity() int {
	if n.Span == nil {
		return 2
	}
	return 3
}

// Line returns the needle's start line, or 0 for a file needle.
func (n Needle) Line() int {
	if n.Span == nil {
		return 0
	}
	return n.Span.StartLine
}

// Split partitions needles by arity, preserving order. Both results are
// non-nil.
func Split(all []Needle) (file, line []Needle) {
	file = []Needle{}
	line = []Needle{}
	for _, n := range all {
		switch n.Arity() {
		case 2:
			file = append(file, n)
		case 3:
			line = append(line, n)
		}
	}
	return file, line
}

// ByLine groups line needles by start line, preserving order within a line.
func ByLine(line []Needle) map[int][]Needle {
	out := make(map[int][]Needle)
	for _, n := range line {
		if n.Span == nil {
			continue
		}
		out[n.Span.StartLine] = append(out[n.Span.StartLine], n)
	}
	return out
}
