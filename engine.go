package clangdex

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/jward/clangdex/internal/store"
)

// defaultExts are the C-family sources and headers the Engine indexes
// unless WithExtensions says otherwise.
var defaultExts = []string{
	".c", ".cc", ".cpp", ".cxx", ".c++", ".m", ".mm",
	".h", ".hh", ".hpp", ".hxx", ".h++", ".inl",
}

// Engine runs the pipeline for one tree and persists the resulting needles
// and inheritance edges to a SQLite index.
type Engine struct {
	store  *store.Store
	tree   *Tree
	logger *slog.Logger

	exts         map[string]bool // nil means every discovered file
	workers      int
	pipelineOpts []PipelineOption
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtensions restricts indexing to files with the given extensions.
// No arguments means every discovered file.
func WithExtensions(exts ...string) Option {
	return func(e *Engine) {
		if len(exts) == 0 {
			e.exts = nil
			return
		}
		e.exts = make(map[string]bool, len(exts))
		for _, ext := range exts {
			e.exts[strings.ToLower(ext)] = true
		}
	}
}

// WithWorkers bounds the goroutines constructing file indexers. Values
// below one mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithPipelineOptions passes options through to every Pipeline the Engine
// creates.
func WithPipelineOptions(opts ...PipelineOption) Option {
	return func(e *Engine) {
		e.pipelineOpts = append(e.pipelineOpts, opts...)
	}
}

// WithEngineLogger sets the logger for the Engine and its pipelines.
func WithEngineLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine for tree backed by a SQLite database at dbPath.
func New(dbPath string, tree *Tree, opts ...Option) (*Engine, error) {
	if tree == nil || tree.SourceFolder == "" {
		return nil, fmt.Errorf("clangdex: new engine: source folder is required")
	}
	abs, err := tree.Abs()
	if err != nil {
		return nil, fmt.Errorf("clangdex: new engine: %w", err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("clangdex: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("clangdex: migrate: %w", err)
	}

	e := &Engine{
		store:  s,
		tree:   abs,
		logger: slog.Default(),
	}
	WithExtensions(defaultExts...)(e)
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

func (e *Engine) Tree() *Tree { return e.tree }

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// NewPipeline returns a fresh pipeline configured like the Engine's own.
func (e *Engine) NewPipeline() *Pipeline {
	opts := append([]PipelineOption{WithLogger(e.logger)}, e.pipelineOpts...)
	return NewPipeline(e.tree, opts...)
}

// IndexStats summarizes one Index run.
type IndexStats struct {
	Files     int
	Unchanged int
	Needles   int
	Edges     int
	Duration  time.Duration
}

// Index runs the full pipeline and replaces the index. With a build
// command the build is executed under the instrumented environment;
// without one the emissions already in the temp folder are used.
func (e *Engine) Index(ctx context.Context, base Vars, build []string) (*IndexStats, error) {
	start := time.Now()
	p := e.NewPipeline()

	if len(build) > 0 {
		if err := RunBuild(ctx, p, base, build); err != nil {
			return nil, err
		}
	} else {
		if _, err := p.Init(base); err != nil {
			return nil, err
		}
		if err := p.PreBuild(); err != nil {
			return nil, err
		}
		if err := p.Build(BuildResult{}); err != nil {
			return nil, err
		}
	}

	factory, err := p.PostBuild(ctx)
	if err != nil {
		return nil, err
	}

	paths, err := e.discover(e.tree.SourceFolder)
	if err != nil {
		return nil, fmt.Errorf("clangdex: discover: %w", err)
	}
	e.logger.Info("index.discover", "files", len(paths))

	stats, err := e.IndexFiles(ctx, factory, p.Graph(), paths)
	if err != nil {
		return nil, err
	}
	stats.Duration = time.Since(start)
	e.logger.Info("index.done",
		"files", stats.Files, "unchanged", stats.Unchanged,
		"needles", stats.Needles, "edges", stats.Edges, "elapsed", stats.Duration)
	return stats, nil
}

// discover lists files under root, relative to root. Inside a git work tree
// it uses git ls-files to respect .gitignore; otherwise it walks the
// filesystem, skipping hidden directories and vendor trees.
func (e *Engine) discover(root string) ([]string, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("index.discover.walk", "reason", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (e *Engine) wants(path string) bool {
	return e.exts == nil || e.exts[strings.ToLower(filepath.Ext(path))]
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rel := filepath.FromSlash(line)
		if e.wants(rel) {
			paths = append(paths, rel)
		}
	}
	return paths, nil
}

// skipDirs are excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if e.wants(rel) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
