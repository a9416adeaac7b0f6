package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CommitBatch replaces the whole index with the buffered run inside a
// single transaction. Fake (negative) file IDs are remapped to real IDs
// and every needle's file_id is rewritten through the mapping. On any
// error the previous index is left untouched.
//
// Insert order respects FK dependencies:
//  1. Files
//  2. Needles (depend on file_id)
//  3. Inheritance edges (no FKs; duplicates ignored)
func (s *Store) CommitBatch(batch *Batch) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	if err := clearTx(tx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	fakeToReal := make(map[int64]int64, len(batch.Files))

	// 1. Files
	for _, f := range batch.Files {
		realID, err := insertFileTx(tx, &f)
		if err != nil {
			return fmt.Errorf("commit batch: file %q: %w", f.Path, err)
		}
		fakeToReal[f.ID] = realID
	}

	// 2. Needles
	for _, n := range batch.Needles {
		if n.FileID < 0 {
			realID, ok := fakeToReal[n.FileID]
			if !ok {
				return fmt.Errorf("commit batch: needle %s %q has file_id=%d not in fakeToReal map (have %d files)", n.Tag, n.Value, n.FileID, len(batch.Files))
			}
			n.FileID = realID
		}
		if err := insertNeedleTx(tx, &n); err != nil {
			return fmt.Errorf("commit batch: needle %s %q: %w", n.Tag, n.Value, err)
		}
	}

	// 3. Inheritance
	for _, e := range batch.Edges {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO inheritance (parent, child) VALUES (?, ?)",
			e.Parent, e.Child,
		); err != nil {
			return fmt.Errorf("commit batch: edge %s -> %s: %w", e.Parent, e.Child, err)
		}
	}

	if err := setMetadata(tx, "last_indexed", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	return tx.Commit()
}

func insertFileTx(tx *sql.Tx, f *File) (int64, error) {
	indexed := f.LastIndexed
	if indexed.IsZero() {
		indexed = time.Now().UTC()
	}
	res, err := tx.Exec(
		`INSERT INTO files (path, hash, line_count, last_indexed) VALUES (?, ?, ?, ?)`,
		f.Path, f.Hash, f.LineCount, indexed,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertNeedleTx(tx *sql.Tx, n *Needle) error {
	_, err := tx.Exec(
		`INSERT INTO needles (file_id, tag, value, key, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.FileID, n.Tag, n.Value, n.Key,
		nullableInt(n.Span, func(s *Span) int { return s.StartLine }),
		nullableInt(n.Span, func(s *Span) int { return s.StartCol }),
		nullableInt(n.Span, func(s *Span) int { return s.EndLine }),
		nullableInt(n.Span, func(s *Span) int { return s.EndCol }),
	)
	return err
}
