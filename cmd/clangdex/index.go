package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jward/clangdex"
	"github.com/jward/clangdex/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagForce      bool
	flagObject     string
	flagTemp       string
	flagPlugins    string
	flagCC         string
	flagCXX        string
	flagWorkers    int
	flagExtensions string
)

// addTreeFlags registers the flags shared by index and env.
func addTreeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagObject, "object", "", "object (build) folder (default: source folder)")
	cmd.Flags().StringVar(&flagTemp, "temp", "", "temp folder for analyzer emissions (default: <object>/.clangdex-tmp)")
	cmd.Flags().StringVar(&flagPlugins, "plugins", "", "folder containing clang/libclang-index-plugin.so")
	cmd.Flags().StringVar(&flagCC, "cc", "", "C compiler (default: clang)")
	cmd.Flags().StringVar(&flagCXX, "cxx", "", "C++ compiler (default: clang++)")
}

var indexCmd = &cobra.Command{
	Use:   "index [source] [-- build command...]",
	Short: "Run an instrumented build and index its facts",
	Long: "Sets CC/CXX so clang loads the index plugin, runs the build command in the object folder, " +
		"then merges the emitted facts and writes needles to the SQLite index. Without a build command, " +
		"emissions already present in the temp folder are indexed.",
	Args: cobra.ArbitraryArgs,
	RunE: runIndex,
}

func init() {
	addTreeFlags(indexCmd)
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete the database before indexing")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "indexer goroutines (default: config or CPU count)")
	indexCmd.Flags().StringVar(&flagExtensions, "extensions", "", "comma-separated extension filter (e.g. .c,.cpp,.h)")
}

// splitIndexArgs separates the optional source folder from the build
// command that follows "--".
func splitIndexArgs(cmd *cobra.Command, args []string) (source string, build []string, err error) {
	dash := cmd.ArgsLenAtDash()
	head := args
	if dash >= 0 {
		head, build = args[:dash], args[dash:]
	}
	if len(head) > 1 {
		return "", nil, fmt.Errorf("expected at most one source folder, got %d", len(head))
	}
	if len(head) == 1 {
		source = head[0]
	}
	return source, build, nil
}

// applyFlags layers CLI flags over the loaded configuration.
func applyFlags(cfg *config.Config, source string) {
	if source != "" {
		cfg.Tree.SourceFolder = source
	}
	for flag, dst := range map[*string]*string{
		&flagObject:  &cfg.Tree.ObjectFolder,
		&flagTemp:    &cfg.Tree.TempFolder,
		&flagPlugins: &cfg.Tree.PluginFolder,
		&flagCC:      &cfg.Build.CC,
		&flagCXX:     &cfg.Build.CXX,
	} {
		if *flag != "" {
			*dst = *flag
		}
	}
	if flagWorkers > 0 {
		cfg.Index.Workers = &flagWorkers
	}
	if flagExtensions != "" {
		exts := strings.Split(flagExtensions, ",")
		for i := range exts {
			exts[i] = strings.TrimSpace(exts[i])
		}
		cfg.Index.Extensions = exts
	}
}

// treeFromConfig resolves the tree folders, defaulting the source folder
// to repoRoot.
func treeFromConfig(cfg *config.Config, repoRoot string) (*clangdex.Tree, error) {
	if cfg.Tree.SourceFolder == "" {
		cfg.Tree.SourceFolder = repoRoot
	}
	if err := cfg.Require(); err != nil {
		return nil, err
	}
	tree := &clangdex.Tree{
		SourceFolder: cfg.Tree.SourceFolder,
		ObjectFolder: cfg.EffectiveObjectFolder(),
		TempFolder:   cfg.EffectiveTempFolder(),
		PluginFolder: cfg.Tree.PluginFolder,
	}
	return tree.Abs()
}

func pipelineOptions(cfg *config.Config) ([]clangdex.PipelineOption, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	return []clangdex.PipelineOption{
		clangdex.WithCompilers(cfg.Build.CC, cfg.Build.CXX),
		clangdex.WithRegistry(reg),
		clangdex.WithLoadWorkers(cfg.EffectiveWorkers()),
	}, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	source, build, err := splitIndexArgs(cmd, args)
	if err != nil {
		return outputError("index", err)
	}
	engine, cfg, dbPath, err := openEngine(source)
	if err != nil {
		return outputError("index", err)
	}
	defer engine.Close()
	if len(build) == 0 {
		build = cfg.Build.Command
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats, err := engine.Index(ctx, clangdex.EnvironVars(os.Environ()), build)
	if err != nil {
		return outputError("index", fmt.Errorf("indexing: %w", err))
	}
	return outputResult(CLIResult{Command: "index", Results: indexStatsToCLI(engine, dbPath, stats)})
}

// openEngine loads the configuration, layers the flags over it and opens
// the engine on the resolved database.
func openEngine(source string) (*clangdex.Engine, *config.Config, string, error) {
	repoRoot, err := cwdRepoRoot()
	if err != nil {
		return nil, nil, "", err
	}
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, nil, "", err
	}
	applyFlags(cfg, source)
	if err := cfg.Validate(); err != nil {
		return nil, nil, "", err
	}

	tree, err := treeFromConfig(cfg, repoRoot)
	if err != nil {
		return nil, nil, "", err
	}
	dbPath := resolveDBPath(repoRoot, cfg)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return nil, nil, "", fmt.Errorf("removing database for --force: %w", err)
		}
		slog.Info("index.force", "db", dbPath)
	}

	popts, err := pipelineOptions(cfg)
	if err != nil {
		return nil, nil, "", err
	}
	opts := []clangdex.Option{
		clangdex.WithWorkers(cfg.EffectiveWorkers()),
		clangdex.WithPipelineOptions(popts...),
	}
	if len(cfg.Index.Extensions) > 0 {
		opts = append(opts, clangdex.WithExtensions(cfg.Index.Extensions...))
	}

	engine, err := clangdex.New(dbPath, tree, opts...)
	if err != nil {
		return nil, nil, "", fmt.Errorf("creating engine: %w", err)
	}
	return engine, cfg, dbPath, nil
}

func indexStatsToCLI(engine *clangdex.Engine, dbPath string, stats *clangdex.IndexStats) CLIIndexStats {
	return CLIIndexStats{
		Database:  dbPath,
		Source:    engine.Tree().SourceFolder,
		Files:     stats.Files,
		Unchanged: stats.Unchanged,
		Needles:   stats.Needles,
		Edges:     stats.Edges,
		Duration:  stats.Duration.String(),
	}
}
