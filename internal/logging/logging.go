// Package logging builds the slog.Logger instances used across the
// recorder, indexer and search layers. No structured-logging library
// appears anywhere in the retrieval pack this module was distilled from, so
// this is the one ambient concern built directly on the standard library —
// see DESIGN.md.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// New builds a logger writing to w (os.Stderr if nil) at the given level,
// tagged with a fresh per-run correlation ID so that interleaved
// recorder/indexer output from the same process can be told apart.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("run_id", uuid.NewString())
}

// Component returns a child logger tagged with a component name, e.g.
// "recorder" or "ocr_indexer".
func Component(base *slog.Logger, name string) *slog.Logger {
	return base.With("component", name)
}
