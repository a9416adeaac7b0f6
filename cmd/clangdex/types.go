package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLINeedle is a JSON-friendly needle. Line fields are omitted for
// file-scoped needles.
type CLINeedle struct {
	Tag       string `json:"tag"`
	Value     string `json:"value"`
	Key       string `json:"key,omitempty"`
	File      string `json:"file"`
	Scope     string `json:"scope"` // "file" or "line"
	StartLine int    `json:"start_line,omitempty"`
	StartCol  int    `json:"start_col,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	EndCol    int    `json:"end_col,omitempty"`
}

// CLIFile is a JSON-friendly indexed file.
type CLIFile struct {
	ID        int64  `json:"id"`
	Path      string `json:"path"`
	Hash      string `json:"hash"`
	LineCount int    `json:"line_count"`
}

// CLIHierarchy is a JSON-friendly type hierarchy.
type CLIHierarchy struct {
	Name        string   `json:"name"`
	Parents     []string `json:"parents"`
	Children    []string `json:"children"`
	Ancestors   []string `json:"ancestors"`
	Descendants []string `json:"descendants"`
}

// CLIIndexStats summarizes an index run.
type CLIIndexStats struct {
	Database  string `json:"database"`
	Source    string `json:"source"`
	Files     int    `json:"files"`
	Unchanged int    `json:"unchanged"`
	Needles   int    `json:"needles"`
	Edges     int    `json:"edges"`
	Duration  string `json:"duration"`
}

// CLIEnv is the set of build variable overrides.
type CLIEnv map[string]string
