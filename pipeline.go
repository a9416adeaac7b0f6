package clangdex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jward/clangdex/internal/facts"
	"github.com/jward/clangdex/internal/inherit"
	"github.com/jward/clangdex/internal/needle"
)

var (
	// ErrStageOrder is returned when a pipeline method is called out of turn.
	ErrStageOrder = errors.New("pipeline stage out of order")
	// ErrBuildIncomplete is returned by PostBuild after a failed build.
	ErrBuildIncomplete = errors.New("build did not complete")
)

// Stage is the pipeline's position. Each value names the call it expects next.
type Stage int

const (
	StageInit Stage = iota
	StagePreBuild
	StageBuild
	StagePostBuild
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StagePreBuild:
		return "prebuild"
	case StageBuild:
		return "build"
	case StagePostBuild:
		return "postbuild"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// BuildResult is the controller's report that the build step finished.
type BuildResult struct {
	Err error
}

// Pipeline drives one build through Init, PreBuild, Build and PostBuild.
// It is not safe for concurrent use; the Factory it yields is.
type Pipeline struct {
	tree     *Tree
	cc, cxx  string
	registry *needle.Registry
	logger   *slog.Logger
	workers  int
	output   io.Writer
	fresh    bool

	stage Stage
	env   Vars
	graph *inherit.Graph
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithCompilers sets the C and C++ compiler commands the flags are appended to.
func WithCompilers(cc, cxx string) PipelineOption {
	return func(p *Pipeline) {
		if cc != "" {
			p.cc = cc
		}
		if cxx != "" {
			p.cxx = cxx
		}
	}
}

// WithRegistry replaces the builtin needle registry.
func WithRegistry(r *needle.Registry) PipelineOption {
	return func(p *Pipeline) {
		p.registry = r
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithLoadWorkers bounds the goroutines parsing emissions in PostBuild.
func WithLoadWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// WithBuildOutput sets where RunBuild sends the build's stdout and stderr.
// Defaults to os.Stderr.
func WithBuildOutput(w io.Writer) PipelineOption {
	return func(p *Pipeline) {
		if w != nil {
			p.output = w
		}
	}
}

// WithFreshEmissions makes Init empty the emission folder, so PostBuild
// sees only what this run's build wrote. RunBuild always sets it.
func WithFreshEmissions() PipelineOption {
	return func(p *Pipeline) {
		p.fresh = true
	}
}

// NewPipeline returns a pipeline in StageInit for tree.
func NewPipeline(tree *Tree, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		tree:     tree,
		cc:       "clang",
		cxx:      "clang++",
		registry: needle.Builtin(),
		logger:   slog.Default(),
		output:   os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stage returns the current stage.
func (p *Pipeline) Stage() Stage { return p.stage }

// Graph returns the inheritance graph built by PostBuild, or nil before it.
func (p *Pipeline) Graph() *inherit.Graph { return p.graph }

// Registry returns the needle registry bound into the factory.
func (p *Pipeline) Registry() *needle.Registry { return p.registry }

func (p *Pipeline) expect(op string, want Stage) error {
	if p.stage != want {
		return fmt.Errorf("clangdex: %s: in stage %s: %w", op, p.stage, ErrStageOrder)
	}
	return nil
}

// Flags returns the compiler flags that load the analyzer and point it at
// the source folder.
func (p *Pipeline) Flags() string {
	raw := []string{
		"-load", p.tree.PluginLibrary(),
		"-add-plugin", "dxr-index",
		"-plugin-arg-dxr-index", p.tree.SourceFolder,
	}
	parts := make([]string, len(raw))
	for i, f := range raw {
		parts[i] = "-Xclang " + f
	}
	return strings.Join(parts, " ")
}

// Overrides returns the variables Init layers over the base environment.
func (p *Pipeline) Overrides() Vars {
	flags := p.Flags()
	cc := p.cc + " " + flags
	cxx := p.cxx + " " + flags
	return Vars{
		"CC":                          cc,
		"CXX":                         cxx,
		"DXR_CC":                      cc,
		"DXR_CXX":                     cxx,
		"DXR_CLANG_FLAGS":             flags,
		"DXR_CXX_CLANG_OBJECT_FOLDER": p.tree.ObjectFolder,
		"DXR_CXX_CLANG_TEMP_FOLDER":   p.tree.ClangTempFolder(),
	}
}

// Init merges the analyzer overrides into base and creates the emission
// folder, emptying it first under WithFreshEmissions. The returned set is
// base ∪ overrides with overrides winning.
func (p *Pipeline) Init(base Vars) (Vars, error) {
	if err := p.expect("init", StageInit); err != nil {
		return nil, err
	}
	temp := p.tree.ClangTempFolder()
	if p.fresh {
		if err := os.RemoveAll(temp); err != nil {
			p.stage = StageFailed
			return nil, fmt.Errorf("clangdex: init: clear temp folder: %w", err)
		}
		p.logger.Debug("pipeline.init.cleared", "temp_folder", temp)
	}
	if err := os.MkdirAll(temp, 0o755); err != nil {
		p.stage = StageFailed
		return nil, fmt.Errorf("clangdex: init: create temp folder: %w", err)
	}
	p.env = base.Merge(p.Overrides())
	p.stage = StagePreBuild
	p.logger.Info("pipeline.init", "temp_folder", temp, "vars", len(p.env))
	return p.env, nil
}

// Env returns the merged variables computed by Init.
func (p *Pipeline) Env() Vars { return p.env }

// PreBuild is the synchronization point before the build runs.
func (p *Pipeline) PreBuild() error {
	if err := p.expect("prebuild", StagePreBuild); err != nil {
		return err
	}
	p.stage = StageBuild
	p.logger.Debug("pipeline.prebuild")
	return nil
}

// Build records the outcome of the controller's build step.
func (p *Pipeline) Build(res BuildResult) error {
	if err := p.expect("build", StageBuild); err != nil {
		return err
	}
	if res.Err != nil {
		p.stage = StageFailed
		p.logger.Warn("pipeline.build.failed", "err", res.Err)
		return nil
	}
	p.stage = StagePostBuild
	p.logger.Info("pipeline.build.done")
	return nil
}

// PostBuild loads the project-wide implementation facts, builds the
// inheritance graph and returns a Factory bound to it.
func (p *Pipeline) PostBuild(ctx context.Context) (Factory, error) {
	if p.stage == StageFailed {
		return nil, fmt.Errorf("clangdex: post-build: %w", ErrBuildIncomplete)
	}
	if err := p.expect("post-build", StagePostBuild); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	temp := p.tree.ClangTempFolder()
	opts := []facts.LoadOption{facts.WithOnlyImpl()}
	if p.workers > 0 {
		opts = append(opts, facts.WithWorkers(p.workers))
	}
	t, err := facts.Load(temp, opts...)
	if err != nil {
		p.stage = StageFailed
		return nil, fmt.Errorf("clangdex: post-build: %w", err)
	}
	p.graph = inherit.Build(t)
	p.stage = StageDone
	p.logger.Info("pipeline.postbuild.done",
		"records", t.Len(), "types", len(p.graph.Nodes()), "edges", len(p.graph.Edges()))

	return newFactory(facts.NewStore(temp, p.tree.SourceFolder), p.graph, p.registry), nil
}
