package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jward/clangdex/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "clangdex",
	Short:         "Index C/C++ builds through the clang index plugin",
	Long:          "clangdex instruments a build so clang emits semantic facts, merges them into an inheritance graph, and writes per-file and per-line needles to a SQLite index.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(flagVerbose)
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .clangdex/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (.yaml, .yml or .toml; default: clangdex.{yaml,yml,toml} in the repo root)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddCommand(envCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// configNames are looked up in the repo root when --config is not given.
var configNames = []string{"clangdex.yaml", "clangdex.yml", "clangdex.toml"}

// loadConfig reads --config, or the first config file found in repoRoot,
// or falls back to defaults plus environment overrides.
func loadConfig(repoRoot string) (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	for _, name := range configNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	cfg := config.Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from --db, the config, or the
// default, anchored at repoRoot when relative.
func resolveDBPath(repoRoot string, cfg *config.Config) string {
	p := flagDB
	if p == "" {
		p = cfg.EffectiveDatabase()
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}

func cwdRepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return findRepoRoot(cwd), nil
}
