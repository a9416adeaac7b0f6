package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const needleColumns = "id, file_id, tag, value, key, start_line, start_col, end_line, end_col"

// FileByPath returns the file row for path, or nil when it is not indexed.
func (s *Store) FileByPath(path string) (*File, error) {
	var f File
	err := s.db.QueryRow(
		"SELECT id, path, hash, line_count, last_indexed FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &f.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return &f, nil
}

// Files returns all indexed files ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, hash, line_count, last_indexed FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()

	var out []*File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

// NeedlesByFile returns every needle of fileID. File-scoped needles come
// first, then line needles by position.
func (s *Store) NeedlesByFile(fileID int64) ([]*Needle, error) {
	return s.queryNeedles(
		"SELECT "+needleColumns+" FROM needles WHERE file_id = ? "+
			"ORDER BY start_line IS NOT NULL, start_line, start_col, id",
		fileID,
	)
}

// NeedlesOnLine returns the line needles of fileID whose span starts on line.
func (s *Store) NeedlesOnLine(fileID int64, line int) ([]*Needle, error) {
	return s.queryNeedles(
		"SELECT "+needleColumns+" FROM needles WHERE file_id = ? AND start_line = ? ORDER BY start_col, id",
		fileID, line,
	)
}

// SearchNeedles returns needles whose value equals value, optionally
// restricted to tags. A trailing '*' in value matches by prefix.
func (s *Store) SearchNeedles(value string, tags ...string) ([]*Needle, error) {
	var where []string
	var args []any
	if prefix, ok := strings.CutSuffix(value, "*"); ok {
		where = append(where, "value LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(prefix)+"%")
	} else {
		where = append(where, "value = ?")
		args = append(args, value)
	}
	if len(tags) > 0 {
		where = append(where, "tag IN ("+placeholderList(len(tags))+")")
		args = append(args, stringsToArgs(tags)...)
	}
	return s.queryNeedles(
		"SELECT "+needleColumns+" FROM needles WHERE "+strings.Join(where, " AND ")+
			" ORDER BY file_id, start_line, start_col, id",
		args...,
	)
}

func (s *Store) queryNeedles(query string, args ...any) ([]*Needle, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query needles: %w", err)
	}
	defer rows.Close()

	var out []*Needle
	for rows.Next() {
		var n Needle
		var sl, sc, el, ec sql.NullInt64
		if err := rows.Scan(&n.ID, &n.FileID, &n.Tag, &n.Value, &n.Key, &sl, &sc, &el, &ec); err != nil {
			return nil, fmt.Errorf("query needles: scan: %w", err)
		}
		if sl.Valid {
			n.Span = &Span{
				StartLine: int(sl.Int64),
				StartCol:  int(sc.Int64),
				EndLine:   int(el.Int64),
				EndCol:    int(ec.Int64),
			}
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
