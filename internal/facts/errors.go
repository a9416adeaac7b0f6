package facts

import (
	"errors"
	"fmt"
)

var (
	// ErrFactFormat matches any *FactFormatError.
	ErrFactFormat = errors.New("malformed fact emission")
	// ErrFactSourceMissing matches any *FactSourceMissingError.
	ErrFactSourceMissing = errors.New("fact emission missing")
)

// FactFormatError reports an emission file that exists but cannot be parsed.
type FactFormatError struct {
	File   string // emission file path
	Line   int    // 1-based row, 0 when unknown
	Kind   string // record kind, empty when the row had none
	Reason string
}

func (e *FactFormatError) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if loc == "" {
		return fmt.Sprintf("%s (kind %q): %s", ErrFactFormat, e.Kind, e.Reason)
	}
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s (kind %q): %s", ErrFactFormat, loc, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrFactFormat, loc, e.Reason)
}

func (e *FactFormatError) Unwrap() error { return ErrFactFormat }

// FactSourceMissingError reports that expected emission files are absent.
// File is empty for a project-wide (global) load.
type FactSourceMissingError struct {
	Dir  string
	File string
}

func (e *FactSourceMissingError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: no emission files in %s (global scope)", ErrFactSourceMissing, e.Dir)
	}
	return fmt.Sprintf("%s: no emission files for %s in %s", ErrFactSourceMissing, e.File, e.Dir)
}

func (e *FactSourceMissingError) Unwrap() error { return ErrFactSourceMissing }
