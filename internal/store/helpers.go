package store

import "strings"

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringsToArgs converts []string to []any for use with database/sql.
func stringsToArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// nullableInt maps a nil span to SQL NULL.
func nullableInt(sp *Span, pick func(*Span) int) any {
	if sp == nil {
		return nil
	}
	return pick(sp)
}
