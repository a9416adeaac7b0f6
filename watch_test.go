package clangdex

import (
	"context"
	"testing"
	"time"

	"github.com/jward/clangdex/internal/facts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type watchRun struct {
	stats *IndexStats
	err   error
}

func TestWatch_ReindexesOnNewEmissions(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t)
	e := newTestEngine(t, tree)

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan watchRun, 8)
	done := make(chan error, 1)
	go func() {
		done <- e.Watch(ctx, Vars{}, 20*time.Millisecond, func(s *IndexStats, err error) {
			runs <- watchRun{s, err}
		})
	}()

	// Nothing emitted yet: the initial run reports the missing folder.
	first := <-runs
	require.ErrorIs(t, first.err, facts.ErrFactSourceMissing)

	// A run may fire between the two emission writes; wait for a clean one.
	writeProject(t, tree)
	timeout := time.After(5 * time.Second)
	for ok := false; !ok; {
		select {
		case r := <-runs:
			if r.err == nil {
				assert.Equal(t, 1, r.stats.Edges)
				ok = true
			}
		case <-timeout:
			t.Fatal("no successful re-index after emissions were written")
		}
	}

	hits, err := e.Query().NeedlesOnLine("derived.cpp", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_StopsOnCanceledContext(t *testing.T) {
	t.Parallel()
	tree := newTestTree(t)
	writeProject(t, tree)
	e := newTestEngine(t, tree)

	ctx, cancel := context.WithCancel(context.Background())
	var got []watchRun
	err := e.Watch(ctx, Vars{}, 0, func(s *IndexStats, err error) {
		got = append(got, watchRun{s, err})
		cancel()
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NoError(t, got[0].err)
	assert.Equal(t, 3, got[0].stats.Files)
}
