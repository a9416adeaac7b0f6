package clangdex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/clangdex/internal/facts"
)

// DefaultDebounce is how long the emission folder must stay quiet before
// Watch re-indexes.
const DefaultDebounce = 500 * time.Millisecond

// Watch indexes once, then re-indexes every time the emission folder
// changes and has been quiet for debounce. It is meant for builds driven
// outside clangdex with the variables printed by `clangdex env`. onIndex,
// when non-nil, receives the outcome of every run. Watch returns nil when
// ctx is done.
func (e *Engine) Watch(ctx context.Context, base Vars, debounce time.Duration, onIndex func(*IndexStats, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dir := e.tree.ClangTempFolder()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("clangdex: watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("clangdex: watch: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("clangdex: watch %s: %w", dir, err)
	}

	run := func() {
		stats, err := e.Index(ctx, base, nil)
		if err != nil {
			e.logger.Warn("watch.index.failed", "err", err)
		}
		if onIndex != nil {
			onIndex(stats, err)
		}
	}
	run()
	e.logger.Info("watch.started", "dir", dir, "debounce", debounce)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != facts.EmissionExt {
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				fire = time.After(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch.error", "err", err)
		case <-fire:
			fire = nil
			run()
		}
	}
}
