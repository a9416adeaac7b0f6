package clangdex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/clangdex/internal/inherit"
	"github.com/jward/clangdex/internal/needle"
	"github.com/jward/clangdex/internal/store"
)

// IndexFiles builds one FileIndexer per path and replaces the index with
// the result. Paths are relative to the tree's source folder.
//
//	Phase A (parallel): read, hash and project each file into a Batch.
//	Phase B (serial):   commit the batch and the graph's edges in one
//	                    transaction.
//
// Any file error aborts before Phase B, leaving the previous index intact.
func (e *Engine) IndexFiles(ctx context.Context, factory Factory, g *inherit.Graph, paths []string) (*IndexStats, error) {
	previous, err := e.previousHashes()
	if err != nil {
		return nil, fmt.Errorf("clangdex: index: %w", err)
	}

	batch := store.NewBatch()
	stats := &IndexStats{}

	// ---- Phase A: Parallel projection ----
	// errs is indexed like paths so the reported error does not depend on
	// scheduling.
	var mu sync.Mutex
	errs := make([]error, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i, rel := range paths {
		i, rel := i, rel
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			unchanged, n, err := e.indexFile(factory, batch, previous, rel)
			if err != nil {
				errs[i] = fmt.Errorf("index %s: %w", rel, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			stats.Files++
			stats.Needles += n
			if unchanged {
				stats.Unchanged++
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return nil, fmt.Errorf("clangdex: indexing had %d error(s): %w", len(failed), failed[0])
	}

	// ---- Phase B: Serial commit ----
	if g != nil {
		edges := g.Edges()
		stored := make([]store.Edge, len(edges))
		for i, edge := range edges {
			stored[i] = store.Edge{Parent: edge.Parent, Child: edge.Child}
		}
		batch.AddEdges(stored)
		stats.Edges = len(stored)
	}
	if err := e.store.CommitBatch(batch); err != nil {
		return nil, fmt.Errorf("clangdex: %w", err)
	}
	if err := e.store.SetMetadata("source_folder", e.tree.SourceFolder); err != nil {
		return nil, fmt.Errorf("clangdex: %w", err)
	}
	e.logger.Info("index.commit", "files", stats.Files, "needles", stats.Needles, "edges", stats.Edges)
	return stats, nil
}

// indexFile runs the factory for one file and buffers its needles.
func (e *Engine) indexFile(factory Factory, batch *store.Batch, previous map[string]string, rel string) (unchanged bool, needles int, err error) {
	abs := filepath.Join(e.tree.SourceFolder, rel)
	content, err := os.ReadFile(abs)
	if err != nil {
		return false, 0, fmt.Errorf("read file: %w", err)
	}
	fi, err := factory(abs, content, e.tree)
	if err != nil {
		return false, 0, err
	}

	hash := store.ContentHash(content)
	stored := toStoreNeedles(fi)
	batch.AddFile(&store.File{
		Path:        filepath.ToSlash(rel),
		Hash:        hash,
		LineCount:   lineCount(content),
		LastIndexed: time.Now(),
	}, stored)
	e.logger.Debug("index.file", "path", rel, "needles", len(stored))
	return previous[filepath.ToSlash(rel)] == hash, len(stored), nil
}

func (e *Engine) previousHashes() (map[string]string, error) {
	files, err := e.store.Files()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Path] = f.Hash
	}
	return out, nil
}

func toStoreNeedles(fi *FileIndexer) []store.Needle {
	out := make([]store.Needle, 0, len(fi.Needles())+len(fi.LineNeedles()))
	for _, n := range fi.Needles() {
		out = append(out, store.Needle{Tag: n.Tag, Value: n.Value, Key: n.Key})
	}
	for _, n := range fi.LineNeedles() {
		out = append(out, store.Needle{Tag: n.Tag, Value: n.Value, Key: n.Key, Span: toStoreSpan(n)})
	}
	return out
}

func toStoreSpan(n needle.Needle) *store.Span {
	if n.Span == nil {
		return nil
	}
	return &store.Span{
		StartLine: n.Span.StartLine,
		StartCol:  n.Span.StartCol,
		EndLine:   n.Span.EndLine,
		EndCol:    n.Span.EndCol,
	}
}

func lineCount(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for i, b := range content {
		if b == '\n' && i != len(content)-1 {
			n++
		}
	}
	return n
}
