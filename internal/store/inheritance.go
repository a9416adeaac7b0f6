package store

import "fmt"

// Edges returns every persisted inheritance edge ordered by (parent, child).
func (s *Store) Edges() ([]Edge, error) {
	return s.queryEdges("SELECT id, parent, child FROM inheritance ORDER BY parent, child")
}

// Parents returns the direct parents of child.
func (s *Store) Parents(child string) ([]string, error) {
	edges, err := s.queryEdges("SELECT id, parent, child FROM inheritance WHERE child = ? ORDER BY parent", child)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.Parent
	}
	return out, nil
}

// Children returns the direct children of parent.
func (s *Store) Children(parent string) ([]string, error) {
	edges, err := s.queryEdges("SELECT id, parent, child FROM inheritance WHERE parent = ? ORDER BY child", parent)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.Child
	}
	return out, nil
}

func (s *Store) queryEdges(query string, args ...any) ([]Edge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inheritance: %w", err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.Parent, &e.Child); err != nil {
			return nil, fmt.Errorf("query inheritance: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
