package needle

import (
	"fmt"

	"github.com/jward/clangdex/internal/facts"
	"github.com/jward/clangdex/internal/inherit"
)

// All returns every needle the registry produces for t, mappings first in
// registration order, then hierarchy mappings. Records of unregistered kinds
// are ignored. Records lacking the value field are skipped. The graph may be
// nil, in which case hierarchy mappings produce nothing.
func (r *Registry) All(t *facts.Table, g *inherit.Graph) ([]Needle, error) {
	var out []Needle
	for _, m := range r.mappings {
		tag := m.FullTag()
		for _, rec := range t.Records(m.Kind) {
			v, ok := rec.Get(m.Key1)
			if !ok || v == "" {
				continue
			}
			n := Needle{Tag: tag, Value: v}
			if m.Key2 != "" {
				n.Key = rec.Value(m.Key2)
			}
			if m.Span != "" {
				sp, err := recordSpan(rec, m.Span)
				if err != nil {
					return nil, err
				}
				n.Span = sp
			}
			out = append(out, n)
		}
	}

	if g == nil {
		return out, nil
	}
	for _, h := range r.hierarchy {
		tag := h.FullTag()
		for _, rec := range t.Records(h.Kind) {
			name := rec.Value(h.NameField)
			if name == "" || !g.Has(name) {
				continue
			}
			var related []string
			var err error
			if h.Direction == Descendants {
				related, err = g.Descendants(name)
			} else {
				related, err = g.Ancestors(name)
			}
			if err != nil {
				return nil, fmt.Errorf("%s of %s: %w", h.Direction, name, err)
			}
			var sp *facts.Span
			if h.SpanField != "" {
				if sp, err = recordSpan(rec, h.SpanField); err != nil {
					return nil, err
				}
			}
			for _, rel := range related {
				out = append(out, Needle{Tag: tag, Value: rel, Span: sp})
			}
		}
	}
	return out, nil
}

// Project returns the file-scoped and line-scoped needles for t. With an
// empty registry both are empty, non-nil slices.
func (r *Registry) Project(t *facts.Table, g *inherit.Graph) (file, line []Needle, err error) {
	all, err := r.All(t, g)
	if err != nil {
		return nil, nil, err
	}
	file, line = Split(all)
	return file, line, nil
}

func recordSpan(rec facts.Record, field string) (*facts.Span, error) {
	sp, err := rec.Span(field)
	if err != nil {
		return nil, &facts.FactFormatError{Kind: rec.Kind, Reason: err.Error()}
	}
	return &sp, nil
}
