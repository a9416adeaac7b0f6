package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
)

// formatNeedlesText formats CLINeedle results as aligned columns.
func formatNeedlesText(w io.Writer, needles []CLINeedle) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tVALUE\tKEY\tFILE\tLINE\tCOL")
	for _, n := range needles {
		line, col := "-", "-"
		if n.Scope == "line" {
			line, col = fmt.Sprint(n.StartLine), fmt.Sprint(n.StartCol)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", n.Tag, n.Value, dash(n.Key), n.File, line, col)
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%d\n", f.ID, f.Path, f.LineCount)
	}
	tw.Flush()
}

func formatHierarchyText(w io.Writer, h CLIHierarchy) {
	fmt.Fprintf(w, "Type: %s\n", h.Name)
	for _, sec := range []struct {
		title string
		names []string
	}{
		{"Parents", h.Parents},
		{"Children", h.Children},
		{"Ancestors", h.Ancestors},
		{"Descendants", h.Descendants},
	} {
		if len(sec.names) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", sec.title)
		for _, n := range sec.names {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
}

func formatIndexStatsText(w io.Writer, s CLIIndexStats) {
	fmt.Fprintf(w, "Indexed %s in %s\n", s.Source, s.Duration)
	fmt.Fprintf(w, "Files: %d (%d unchanged)\n", s.Files, s.Unchanged)
	fmt.Fprintf(w, "Needles: %d\n", s.Needles)
	fmt.Fprintf(w, "Inheritance edges: %d\n", s.Edges)
	fmt.Fprintf(w, "Database: %s\n", s.Database)
}

// formatEnvText writes shell export lines, sorted by name.
func formatEnvText(w io.Writer, env CLIEnv) {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "export %s=%s\n", k, shellQuote(env[k]))
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	return writeResult(os.Stdout, result)
}

func writeResult(w io.Writer, result CLIResult) error {
	if flagFormat == "text" {
		return writeResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// writeResultText dispatches to the appropriate text formatter based on the
// result type.
func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLINeedle:
		formatNeedlesText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case CLIHierarchy:
		formatHierarchyText(w, v)
	case CLIIndexStats:
		formatIndexStatsText(w, v)
	case CLIEnv:
		formatEnvText(w, v)
	case nil:
		// No output for nil results (e.g., hierarchy of an unknown type).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLINeedle:
		return len(r)
	case []CLIFile:
		return len(r)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
