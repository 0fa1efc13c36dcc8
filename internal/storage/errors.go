package storage

import "errors"

// ErrNotFound is returned by single-row lookups that find no matching row.
var ErrNotFound = errors.New("storage: not found")
