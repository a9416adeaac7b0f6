package facts

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is one immutable row emitted by the analyzer: a kind tag plus an
// ordered set of named fields.
type Record struct {
	Kind   string
	names  []string
	values []string
}

// NewRecord builds a record from alternating name/value pairs. A trailing
// unpaired name is ignored.
func NewRecord(kind string, pairs ...string) Record {
	r := Record{Kind: kind}
	for i := 0; i+1 < len(pairs); i += 2 {
		r.names = append(r.names, pairs[i])
		r.values = append(r.values, pairs[i+1])
	}
	return r
}

// Fields returns the record's field names in emission order.
func (r Record) Fields() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Get returns the value of the named field.
func (r Record) Get(name string) (string, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return "", false
}

// Value returns the named field or "" when absent.
func (r Record) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// Int parses the named field as a base-10 integer.
func (r Record) Int(name string) (int, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, fmt.Errorf("field %q not present", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", name, err)
	}
	return n, nil
}

// Span parses a positional field. Accepted forms are "file:line:col" and
// "file:line:col:endline:endcol"; the file part may itself contain colons.
func (r Record) Span(name string) (Span, error) {
	v, ok := r.Get(name)
	if !ok {
		return Span{}, fmt.Errorf("field %q not present", name)
	}
	return ParseSpan(v)
}

// key is the identity used to drop duplicate emissions of the same row.
func (r Record) key() string {
	var b strings.Builder
	b.WriteString(r.Kind)
	for i := range r.names {
		b.WriteByte(0)
		b.WriteString(r.names[i])
		b.WriteByte(0)
		b.WriteString(r.values[i])
	}
	return b.String()
}

func (r Record) schema() string {
	return strings.Join(r.names, ",")
}

// Span is a source range. Lines and columns are 1-based; a point has
// EndLine == StartLine and EndCol == StartCol.
type Span struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// ParseSpan parses the positional value formats documented on Record.Span.
func ParseSpan(s string) (Span, error) {
	parts := strings.Split(s, ":")
	nums := trailingInts(parts)
	var sp Span
	switch {
	case len(nums) >= 4 && len(parts) > 4:
		n := nums[len(nums)-4:]
		file := strings.Join(parts[:len(parts)-4], ":")
		sp = Span{File: file, StartLine: n[0], StartCol: n[1], EndLine: n[2], EndCol: n[3]}
	case len(nums) >= 2 && len(parts) > 2:
		n := nums[len(nums)-2:]
		file := strings.Join(parts[:len(parts)-2], ":")
		sp = Span{File: file, StartLine: n[0], StartCol: n[1], EndLine: n[0], EndCol: n[1]}
	default:
		return Span{}, fmt.Errorf("invalid position %q", s)
	}
	// Lines and columns are 1-based; line 0 would read as file scope.
	if sp.StartLine < 1 || sp.StartCol < 1 || sp.EndLine < 1 || sp.EndCol < 1 {
		return Span{}, fmt.Errorf("invalid position %q: lines and columns start at 1", s)
	}
	return sp, nil
}

// trailingInts returns the run of integer components at the end of parts,
// capped at four.
func trailingInts(parts []string) []int {
	var rev []int
	for i := len(parts) - 1; i >= 0 && len(rev) < 4; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			break
		}
		rev = append(rev, n)
	}
	out := make([]int, len(rev))
	for i, n := range rev {
		out[len(rev)-1-i] = n
	}
	return out
}
