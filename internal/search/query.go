package search

import (
	"context"
	"fmt"

	"memoire/internal/storage"
)

const (
	defaultLimit = 50
	minLimit     = 1
	maxLimit     = 100
)

// clampLimit applies spec.md §4.9's limit clamp: [1,100], default 50 for
// limit <= 0 (callers pass 0 to mean "unset").
func clampLimit(limit int64) int64 {
	if limit <= 0 {
		return defaultLimit
	}
	if limit < minLimit {
		return minLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func clampOffset(offset int64) int64 {
	if offset < 0 {
		return 0
	}
	return offset
}

// OcrResults is one page of OCR search matches plus the total match count
// across every page, spec.md §4.9's search_ocr return shape.
type OcrResults struct {
	Matches []storage.SearchOcrResult
	Total   int64
}

// SearchOcr sanitizes query, clamps limit/offset, and returns one ranked
// page of OCR matches alongside the total match count.
func SearchOcr(ctx context.Context, store *storage.Store, query string, limit, offset int64) (OcrResults, error) {
	ftsQuery, err := sanitizeFTS5Query(query)
	if err != nil {
		return OcrResults{}, err
	}
	limit = clampLimit(limit)
	offset = clampOffset(offset)

	matches, err := store.SearchOcr(ctx, ftsQuery, limit, offset)
	if err != nil {
		return OcrResults{}, fmt.Errorf("search: search ocr: %w", err)
	}
	total, err := store.CountOcrMatches(ctx, ftsQuery)
	if err != nil {
		return OcrResults{}, fmt.Errorf("search: count ocr matches: %w", err)
	}
	return OcrResults{Matches: matches, Total: total}, nil
}

// AudioResults is the transcription analogue of OcrResults.
type AudioResults struct {
	Matches []storage.SearchAudioResult
	Total   int64
}

// SearchAudio is the transcription analogue of SearchOcr.
func SearchAudio(ctx context.Context, store *storage.Store, query string, limit, offset int64) (AudioResults, error) {
	ftsQuery, err := sanitizeFTS5Query(query)
	if err != nil {
		return AudioResults{}, err
	}
	limit = clampLimit(limit)
	offset = clampOffset(offset)

	matches, err := store.SearchAudio(ctx, ftsQuery, limit, offset)
	if err != nil {
		return AudioResults{}, fmt.Errorf("search: search audio: %w", err)
	}
	total, err := store.CountAudioMatches(ctx, ftsQuery)
	if err != nil {
		return AudioResults{}, fmt.Errorf("search: count audio matches: %w", err)
	}
	return AudioResults{Matches: matches, Total: total}, nil
}
