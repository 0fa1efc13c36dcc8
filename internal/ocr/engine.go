// Package ocr wraps the platform OCR service behind a Backend seam,
// computing the heuristic per-line and aggregate confidence scores
// spec.md §4.6 specifies since the platform service provides none.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Rect is an axis-aligned bounding box in the source frame's pixel space.
type Rect struct {
	X, Y, Width, Height float64
}

// BackendLine is one line of text as the platform OCR service reports it,
// before the confidence heuristic is applied.
type BackendLine struct {
	Text string
	BBox Rect
}

// BackendResult is the raw platform recognition output.
type BackendResult struct {
	Lines []BackendLine
}

// Backend is the seam over the platform OCR service, mirroring
// internal/asr.Session: construction and recognition are split so tests
// and non-Windows builds can inject a deterministic fake.
type Backend interface {
	Recognize(ctx context.Context, data []byte, width, height int, languageTag string) (BackendResult, error)
	Close() error
}

// Line is one recognized line with its heuristic confidence attached.
type Line struct {
	Text       string
	BBox       Rect
	Confidence float64
}

// Result is the complete OCR output for one frame: newline-joined text,
// per-line detail, and an aggregate confidence.
type Result struct {
	Text       string
	Lines      []Line
	Confidence float64
}

// Engine validates the configured language tag once at construction and
// applies the confidence heuristic to every recognition the backend
// returns, the Go analogue of
// original_source/src/memoire-ocr/src/engine.rs::Engine plus processor.rs.
type Engine struct {
	backend  Backend
	language string
}

// defaultLanguageTag is spec.md §4.6's default BCP-47 tag.
const defaultLanguageTag = "en-US"

// New validates languageTag via golang.org/x/text/language.Parse — an
// invalid tag is a construction-time error, never a per-frame one — and
// returns an Engine bound to backend.
func New(backend Backend, languageTag string) (*Engine, error) {
	if languageTag == "" {
		languageTag = defaultLanguageTag
	}
	tag, err := language.Parse(languageTag)
	if err != nil {
		return nil, &Error{Kind: ErrEngineInit, Msg: fmt.Sprintf("invalid language tag %q", languageTag), Err: err}
	}
	return &Engine{backend: backend, language: tag.String()}, nil
}

// Close releases the underlying backend.
func (e *Engine) Close() error {
	if e.backend == nil {
		return nil
	}
	return e.backend.Close()
}

// Recognize runs OCR over one RGBA frame and scores the result, matching
// spec.md §4.6's four steps. data must be exactly width*height*4 bytes.
func (e *Engine) Recognize(ctx context.Context, data []byte, width, height int) (Result, error) {
	if len(data) != width*height*4 {
		return Result{}, &Error{
			Kind: ErrConversion,
			Msg:  fmt.Sprintf("expected %d bytes for %dx%d RGBA, got %d", width*height*4, width, height, len(data)),
		}
	}

	raw, err := e.backend.Recognize(ctx, data, width, height, e.language)
	if err != nil {
		return Result{}, &Error{Kind: ErrRecognition, Msg: "platform OCR recognition failed", Err: err}
	}

	lines := make([]Line, 0, len(raw.Lines))
	var text strings.Builder
	for i, bl := range raw.Lines {
		if i > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(bl.Text)
		lines = append(lines, Line{Text: bl.Text, BBox: bl.BBox, Confidence: lineConfidence(bl.Text)})
	}

	return Result{Text: text.String(), Lines: lines, Confidence: aggregateConfidence(lines)}, nil
}
