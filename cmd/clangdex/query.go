package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jward/clangdex"
	"github.com/jward/clangdex/internal/store"
	"github.com/spf13/cobra"
)

var (
	flagLimit  int
	flagOffset int
	flagTags   []string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the needle index",
	Long:  "Run queries against an indexed tree. Line and column numbers are 1-based.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")
	searchCmd.Flags().StringSliceVar(&flagTags, "tag", nil, "restrict to needle tags (repeatable)")

	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(needlesCmd)
	queryCmd.AddCommand(lineCmd)
	queryCmd.AddCommand(searchCmd)
	queryCmd.AddCommand(hierarchyCmd)
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or config default).
func openStore() (*store.Store, error) {
	repoRoot, err := cwdRepoRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(repoRoot, cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'clangdex index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

func openQuery() (*clangdex.QueryBuilder, *store.Store, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return clangdex.NewQueryBuilder(s), s, nil
}

// indexedPath maps a file argument to the slash-separated path stored in
// the index: absolute paths are made relative to the indexed source folder.
func indexedPath(s *store.Store, file string) (string, error) {
	if !filepath.IsAbs(file) {
		return filepath.ToSlash(filepath.Clean(file)), nil
	}
	root, err := s.GetMetadata("source_folder")
	if err != nil {
		return "", err
	}
	if root == "" {
		return filepath.ToSlash(file), nil
	}
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", fmt.Errorf("resolving %q against %s: %w", file, root, err)
	}
	return filepath.ToSlash(rel), nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", name, value)
	}
	return n, nil
}

// paginate applies --offset/--limit and returns the page and the total.
func paginate[T any](items []T) ([]T, int) {
	total := len(items)
	limit := min(max(flagLimit, 1), 500)
	start := min(max(flagOffset, 0), total)
	end := min(start+limit, total)
	return items[start:end], total
}

func needlesToCLI(hits []clangdex.NeedleHit) []CLINeedle {
	out := make([]CLINeedle, len(hits))
	for i, h := range hits {
		out[i] = CLINeedle{
			Tag:   h.Tag,
			Value: h.Value,
			Key:   h.Key,
			File:  h.Location.File,
			Scope: "line",
		}
		if h.FileScoped() {
			out[i].Scope = "file"
			continue
		}
		out[i].StartLine = h.Location.StartLine
		out[i].StartCol = h.Location.StartCol
		out[i].EndLine = h.Location.EndLine
		out[i].EndCol = h.Location.EndCol
	}
	return out
}

func outputNeedles(command string, hits []clangdex.NeedleHit) error {
	page, total := paginate(needlesToCLI(hits))
	return outputResult(CLIResult{Command: command, Results: page, TotalCount: &total})
}

// --- Commands ---

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		qb, s, err := openQuery()
		if err != nil {
			return outputError("files", err)
		}
		defer s.Close()

		files, err := qb.Files()
		if err != nil {
			return outputError("files", err)
		}
		out := make([]CLIFile, len(files))
		for i, f := range files {
			out[i] = CLIFile{ID: f.ID, Path: f.Path, Hash: f.Hash, LineCount: f.LineCount}
		}
		page, total := paginate(out)
		return outputResult(CLIResult{Command: "files", Results: page, TotalCount: &total})
	},
}

var needlesCmd = &cobra.Command{
	Use:   "needles <file>",
	Short: "List every needle of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qb, s, err := openQuery()
		if err != nil {
			return outputError("needles", err)
		}
		defer s.Close()

		path, err := indexedPath(s, args[0])
		if err != nil {
			return outputError("needles", err)
		}
		hits, err := qb.NeedlesInFile(path)
		if err != nil {
			return outputError("needles", err)
		}
		return outputNeedles("needles", hits)
	},
}

var lineCmd = &cobra.Command{
	Use:   "line <file> <line>",
	Short: "List the needles starting on one line",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qb, s, err := openQuery()
		if err != nil {
			return outputError("line", err)
		}
		defer s.Close()

		path, err := indexedPath(s, args[0])
		if err != nil {
			return outputError("line", err)
		}
		line, err := parseIntArg(args[1], "line")
		if err != nil {
			return outputError("line", err)
		}
		hits, err := qb.NeedlesOnLine(path, line)
		if err != nil {
			return outputError("line", err)
		}
		return outputNeedles("line", hits)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <value>",
	Short: "Find needles by value (trailing * matches a prefix)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qb, s, err := openQuery()
		if err != nil {
			return outputError("search", err)
		}
		defer s.Close()

		hits, err := qb.Search(args[0], flagTags...)
		if err != nil {
			return outputError("search", err)
		}
		return outputNeedles("search", hits)
	},
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy <type>",
	Short: "Show the bases and subclasses of a type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qb, s, err := openQuery()
		if err != nil {
			return outputError("hierarchy", err)
		}
		defer s.Close()

		h, err := qb.TypeHierarchy(args[0])
		if err != nil {
			return outputError("hierarchy", err)
		}
		if h == nil {
			return outputResult(CLIResult{Command: "hierarchy", Results: nil})
		}
		return outputResult(CLIResult{Command: "hierarchy", Results: CLIHierarchy{
			Name:        h.Name,
			Parents:     nonNil(h.Parents),
			Children:    nonNil(h.Children),
			Ancestors:   nonNil(h.Ancestors),
			Descendants: nonNil(h.Descendants),
		}})
	},
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
