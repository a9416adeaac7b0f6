package needle

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidMapping matches registration failures.
var ErrInvalidMapping = errors.New("invalid needle mapping")

// Mapping says: every record of Kind produces a needle tagged Tag whose
// value pair is the record's Key1 and Key2 fields. Key2 is optional. When
// Span is set it names a positional field and the needle is line-scoped;
// otherwise it is file-scoped.
type Mapping struct {
	Kind   string `yaml:"kind" toml:"kind"`
	Tag    string `yaml:"tag" toml:"tag"`
	Key1   string `yaml:"key1" toml:"key1"`
	Key2   string `yaml:"key2" toml:"key2"`
	Span   string `yaml:"span" toml:"span"`
	Prefix string `yaml:"prefix" toml:"prefix"`
}

// FullTag is Tag with the optional "prefix-" applied.
func (m Mapping) FullTag() string {
	return prefixed(m.Prefix, m.Tag)
}

// Direction selects which side of the hierarchy a HierarchyMapping emits.
type Direction int

const (
	Ancestors Direction = iota
	Descendants
)

func (d Direction) String() string {
	if d == Descendants {
		return "descendants"
	}
	return "ancestors"
}

// HierarchyMapping emits one needle per ancestor or descendant of the type
// named by each record's NameField, read from the shared inheritance graph.
type HierarchyMapping struct {
	Kind      string
	NameField string
	SpanField string
	Tag       string
	Prefix    string
	Direction Direction
}

// FullTag is Tag with the optional "prefix-" applied.
func (h HierarchyMapping) FullTag() string {
	return prefixed(h.Prefix, h.Tag)
}

func prefixed(prefix, tag string) string {
	if prefix == "" {
		return tag
	}
	return prefix + "-" + tag
}

// Registry holds the fact-kind → needle mappings and the ref/annotation
// extractors. Register everything before projecting; a Registry is not
// safe for concurrent registration, but projection only reads it.
type Registry struct {
	schemas     map[string][]string
	positional  map[string][]string
	mappings    []Mapping
	hierarchy   []HierarchyMapping
	refs        map[string]RefExtractor
	annotations map[string]AnnotationExtractor
}

// NewRegistry returns a registry with no mappings. Projecting with it
// yields no needles.
func NewRegistry() *Registry {
	return &Registry{
		schemas:     make(map[string][]string),
		positional:  make(map[string][]string),
		refs:        make(map[string]RefExtractor),
		annotations: make(map[string]AnnotationExtractor),
	}
}

// RegisterSchema records the field names the analyzer emits for kind, so
// later registrations can be checked against it.
func (r *Registry) RegisterSchema(kind string, fields ...string) {
	r.schemas[kind] = append([]string(nil), fields...)
}

// RegisterPositional records which of kind's fields hold a
// "path:line:col" position. Only those may scope a needle to a line.
func (r *Registry) RegisterPositional(kind string, fields ...string) {
	r.positional[kind] = append([]string(nil), fields...)
}

// Schema returns the registered field names for kind.
func (r *Registry) Schema(kind string) ([]string, bool) {
	s, ok := r.schemas[kind]
	return s, ok
}

// Register adds m after validating it.
func (r *Registry) Register(m Mapping) error {
	if m.Kind == "" || m.Tag == "" || m.Key1 == "" {
		return fmt.Errorf("%w: kind, tag and key1 are required (got %+v)", ErrInvalidMapping, m)
	}
	if err := r.checkFields(m.Kind, m.Key1, m.Key2, m.Span); err != nil {
		return err
	}
	if err := r.checkPositional(m.Kind, m.Span); err != nil {
		return err
	}
	r.mappings = append(r.mappings, m)
	return nil
}

// RegisterHierarchy adds h after validating it.
func (r *Registry) RegisterHierarchy(h HierarchyMapping) error {
	if h.Kind == "" || h.Tag == "" || h.NameField == "" {
		return fmt.Errorf("%w: kind, tag and name field are required (got %+v)", ErrInvalidMapping, h)
	}
	if h.Direction != Ancestors && h.Direction != Descendants {
		return fmt.Errorf("%w: unknown direction %d", ErrInvalidMapping, h.Direction)
	}
	if err := r.checkFields(h.Kind, h.NameField, h.SpanField); err != nil {
		return err
	}
	if err := r.checkPositional(h.Kind, h.SpanField); err != nil {
		return err
	}
	r.hierarchy = append(r.hierarchy, h)
	return nil
}

// checkFields fails when kind has a known schema lacking a named field.
func (r *Registry) checkFields(kind string, names ...string) error {
	schema, ok := r.schemas[kind]
	if !ok {
		return nil
	}
	for _, n := range names {
		if n != "" && !slices.Contains(schema, n) {
			return fmt.Errorf("%w: kind %q has no field %q", ErrInvalidMapping, kind, n)
		}
	}
	return nil
}

// checkPositional fails when field is set but kind's known positional
// fields do not include it.
func (r *Registry) checkPositional(kind, field string) error {
	if field == "" {
		return nil
	}
	pos, ok := r.positional[kind]
	if !ok {
		return nil
	}
	if !slices.Contains(pos, field) {
		return fmt.Errorf("%w: field %q of kind %q is not a position", ErrInvalidMapping, field, kind)
	}
	return nil
}

// Mappings returns the registered mappings in registration order.
func (r *Registry) Mappings() []Mapping {
	return append([]Mapping(nil), r.mappings...)
}

// HierarchyMappings returns the registered hierarchy mappings.
func (r *Registry) HierarchyMappings() []HierarchyMapping {
	return append([]HierarchyMapping(nil), r.hierarchy...)
}

// Len is the number of needle-producing registrations.
func (r *Registry) Len() int {
	return len(r.mappings) + len(r.hierarchy)
}
