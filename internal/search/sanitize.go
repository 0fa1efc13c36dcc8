// Package search wraps internal/storage's FTS5 queries with the
// sanitization and pagination rules of spec.md §4.9.
package search

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned for a query that is empty after trimming.
var ErrEmptyQuery = errors.New("search: query is empty")

// sanitizeFTS5Query implements spec.md §4.9's sanitize_fts5_query: trim,
// reject empty, double any embedded double quote, and wrap the whole
// string in double quotes so FTS5 treats it as one literal phrase rather
// than parsing operators (AND, OR, NEAR, column filters, ^, -) out of
// user-typed text.
func sanitizeFTS5Query(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", ErrEmptyQuery
	}
	escaped := strings.ReplaceAll(trimmed, `"`, `""`)
	return `"` + escaped + `"`, nil
}
