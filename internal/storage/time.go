package storage

import (
	"fmt"
	"time"
)

// sqliteDatetimeLayout is what SQLite's own datetime('now') produces,
// distinct from the RFC3339 this module writes for its own timestamps.
const sqliteDatetimeLayout = "2006-01-02 15:04:05"

// parseTimestamp mirrors
// original_source/src/memoire-db/src/queries.rs::parse_datetime: try
// RFC3339 first (what this module writes), then fall back to the bare
// SQLite datetime('now') format used by the column defaults.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(sqliteDatetimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
