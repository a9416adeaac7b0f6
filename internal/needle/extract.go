package needle

import "github.com/jward/clangdex/internal/facts"

// Ref is a clickable reference span on one line.
type Ref struct {
	Line     int
	StartCol int
	EndCol   int
	Target   string // qualified name of the referenced entity
	Kind     string
}

// Annotation is an inline note attached to one line, e.g. a compiler warning.
type Annotation struct {
	Line    int
	Class   string
	Message string
}

// RefExtractor turns one record into a Ref. ok=false skips the record.
type RefExtractor func(rec facts.Record) (ref Ref, ok bool)

// AnnotationExtractor turns one record into an Annotation.
type AnnotationExtractor func(rec facts.Record) (ann Annotation, ok bool)

// RegisterRefs installs the ref extractor for kind, replacing any earlier one.
func (r *Registry) RegisterRefs(kind string, fn RefExtractor) {
	r.refs[kind] = fn
}

// RegisterAnnotations installs the annotation extractor for kind.
func (r *Registry) RegisterAnnotations(kind string, fn AnnotationExtractor) {
	r.annotations[kind] = fn
}

// RefsByLine runs the ref extractors over t. Kinds are visited in table
// order. No extractors means an empty map.
func (r *Registry) RefsByLine(t *facts.Table) map[int][]Ref {
	out := make(map[int][]Ref)
	for _, kind := range t.Kinds() {
		fn, ok := r.refs[kind]
		if !ok {
			continue
		}
		for _, rec := range t.Records(kind) {
			if ref, ok := fn(rec); ok {
				out[ref.Line] = append(out[ref.Line], ref)
			}
		}
	}
	return out
}

// AnnotationsByLine runs the annotation extractors over t.
func (r *Registry) AnnotationsByLine(t *facts.Table) map[int][]Annotation {
	out := make(map[int][]Annotation)
	for _, kind := range t.Kinds() {
		fn, ok := r.annotations[kind]
		if !ok {
			continue
		}
		for _, rec := range t.Records(kind) {
			if ann, ok := fn(rec); ok {
				out[ann.Line] = append(out[ann.Line], ann)
			}
		}
	}
	return out
}
