// Package inherit builds the project-wide type hierarchy from inheritance
// fact records and answers ancestor/descendant queries over it.
package inherit

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jward/clangdex/internal/facts"
)

// ErrInheritanceCycle matches any *CycleError.
var ErrInheritanceCycle = errors.New("inheritance cycle")

// CycleError is returned by a traversal that reaches a cycle. Path starts
// and ends at the same type.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInheritanceCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrInheritanceCycle }

// Edge is one parent→child inheritance relation.
type Edge struct {
	Parent string
	Child  string
}

// edgeSchema names the fields of a record kind that carry an edge.
type edgeSchema struct {
	parent string
	child  string
}

// edgeKinds maps record kinds to the fields holding base and derived names.
// "impl" is the analyzer's native form (tbname = base, tcname = derived).
var edgeKinds = map[string]edgeSchema{
	"inheritance": {parent: "parent", child: "child"},
	"impl":        {parent: "tbname", child: "tcname"},
}

// Graph is an immutable directed graph over qualified type names. It is
// safe for concurrent readers once Build returns.
type Graph struct {
	nodes    map[string]bool
	edges    []Edge
	children map[string][]string
	parents  map[string][]string
}

// Build collects every inheritance edge in t. Records missing either
// endpoint are skipped; duplicate edges collapse. Build never fails, even on
// cyclic input.
func Build(t *facts.Table) *Graph {
	g := &Graph{
		nodes:    make(map[string]bool),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
	seen := make(map[Edge]bool)

	kinds := make([]string, 0, len(edgeKinds))
	for k := range edgeKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		schema := edgeKinds[kind]
		for _, r := range t.Records(kind) {
			e := Edge{Parent: r.Value(schema.parent), Child: r.Value(schema.child)}
			if e.Parent == "" || e.Child == "" || seen[e] {
				continue
			}
			seen[e] = true
			g.nodes[e.Parent] = true
			g.nodes[e.Child] = true
			g.edges = append(g.edges, e)
			g.children[e.Parent] = append(g.children[e.Parent], e.Child)
			g.parents[e.Child] = append(g.parents[e.Child], e.Parent)
		}
	}

	for _, cs := range g.children {
		sort.Strings(cs)
	}
	for _, ps := range g.parents {
		sort.Strings(ps)
	}
	return g
}

// FromEdges builds a graph directly from edges, e.g. ones read back from
// the index database.
func FromEdges(edges []Edge) *Graph {
	t := facts.NewTable()
	for _, e := range edges {
		_ = t.Add(facts.NewRecord("inheritance", "parent", e.Parent, "child", e.Child))
	}
	return Build(t)
}

// Has reports whether name appears in any edge.
func (g *Graph) Has(name string) bool {
	return g.nodes[name]
}

// Nodes returns every type name in the graph, sorted.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Edges returns the edge set in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Parents returns the direct bases of name.
func (g *Graph) Parents(name string) []string {
	return append([]string(nil), g.parents[name]...)
}

// Children returns the direct subclasses of name.
func (g *Graph) Children(name string) []string {
	return append([]string(nil), g.children[name]...)
}

// Ancestors returns every transitive base of name, nearest first.
func (g *Graph) Ancestors(name string) ([]string, error) {
	return g.walk(name, g.parents)
}

// Descendants returns every transitive subclass of name, nearest first.
func (g *Graph) Descendants(name string) ([]string, error) {
	return g.walk(name, g.children)
}

// IsAncestor reports whether base is a transitive base of name.
func (g *Graph) IsAncestor(base, name string) (bool, error) {
	anc, err := g.Ancestors(name)
	if err != nil {
		return false, err
	}
	for _, a := range anc {
		if a == base {
			return true, nil
		}
	}
	return false, nil
}

// walk checks the reachable subgraph for cycles, then returns it in
// breadth-first order. Diamonds are visited once.
func (g *Graph) walk(start string, next map[string][]string) ([]string, error) {
	if err := g.checkCycle(start, next); err != nil {
		return nil, err
	}

	var out []string
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next[cur] {
			if visited[n] {
				continue
			}
			visited[n] = true
			out = append(out, n)
			queue = append(queue, n)
		}
	}
	return out, nil
}

// checkCycle runs a depth-first search from start and fails if it revisits
// a node that is still on the stack.
func (g *Graph) checkCycle(start string, next map[string][]string) error {
	const (
		unseen = iota
		onStack
		done
	)
	state := make(map[string]int)
	var stack []string

	var visit func(n string) error
	visit = func(n string) error {
		state[n] = onStack
		stack = append(stack, n)
		for _, m := range next[n] {
			switch state[m] {
			case onStack:
				path := []string{m}
				for i := len(stack) - 1; i >= 0 && stack[i] != m; i-- {
					path = append(path, stack[i])
				}
				path = append(path, m)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return &CycleError{Path: path}
			case unseen:
				if err := visit(m); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[n] = done
		return nil
	}
	return visit(start)
}
