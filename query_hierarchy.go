package clangdex

import (
	"fmt"

	"github.com/jward/clangdex/internal/inherit"
)

// TypeHierarchy is the inheritance neighbourhood of one type, read from
// the persisted edges.
type TypeHierarchy struct {
	Name        string
	Parents     []string
	Children    []string
	Ancestors   []string // nearest first
	Descendants []string // nearest first
}

// TypeHierarchy returns the hierarchy of name. Returns nil with no error if
// name appears in no inheritance edge. A reachable cycle is reported as
// inherit.ErrInheritanceCycle.
func (q *QueryBuilder) TypeHierarchy(name string) (*TypeHierarchy, error) {
	g, err := q.Graph()
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if !g.Has(name) {
		return nil, nil
	}
	anc, err := g.Ancestors(name)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	desc, err := g.Descendants(name)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	return &TypeHierarchy{
		Name:        name,
		Parents:     g.Parents(name),
		Children:    g.Children(name),
		Ancestors:   anc,
		Descendants: desc,
	}, nil
}

// Graph rebuilds the inheritance graph from the persisted edges.
func (q *QueryBuilder) Graph() (*inherit.Graph, error) {
	stored, err := q.store.Edges()
	if err != nil {
		return nil, err
	}
	edges := make([]inherit.Edge, len(stored))
	for i, e := range stored {
		edges[i] = inherit.Edge{Parent: e.Parent, Child: e.Child}
	}
	return inherit.FromEdges(edges), nil
}
