package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"memoire/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memoire.sqlite")
	s, err := storage.Open(path)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedOcr(t *testing.T, s *storage.Store, texts ...string) {
	t.Helper()
	ctx := context.Background()
	chunkID, err := s.InsertVideoChunk(ctx, storage.NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	if err != nil {
		t.Fatalf("InsertVideoChunk: %v", err)
	}
	for i, text := range texts {
		frameID, err := s.InsertFrame(ctx, storage.NewFrame{
			VideoChunkID: chunkID, OffsetIndex: int64(i), Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("InsertFrame: %v", err)
		}
		if _, err := s.InsertOcrText(ctx, storage.NewOcrRecord{FrameID: frameID, Text: text}); err != nil {
			t.Fatalf("InsertOcrText: %v", err)
		}
	}
}

func TestSearchOcr_FindsMatchAndReportsTotal(t *testing.T) {
	s := openTestStore(t)
	seedOcr(t, s, "the quick brown fox", "a slow red fox", "nothing relevant here")

	results, err := SearchOcr(context.Background(), s, "fox", 0, 0)
	if err != nil {
		t.Fatalf("SearchOcr: %v", err)
	}
	if results.Total != 2 {
		t.Errorf("Total = %d, want 2", results.Total)
	}
	if len(results.Matches) != 2 {
		t.Errorf("len(Matches) = %d, want 2", len(results.Matches))
	}
}

func TestSearchOcr_EmptyQueryIsError(t *testing.T) {
	s := openTestStore(t)
	if _, err := SearchOcr(context.Background(), s, "   ", 0, 0); err != ErrEmptyQuery {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchOcr_LimitClampedAndDefaulted(t *testing.T) {
	s := openTestStore(t)
	texts := make([]string, 5)
	for i := range texts {
		texts[i] = "fox"
	}
	seedOcr(t, s, texts...)

	results, err := SearchOcr(context.Background(), s, "fox", 2, 0)
	if err != nil {
		t.Fatalf("SearchOcr: %v", err)
	}
	if len(results.Matches) != 2 {
		t.Errorf("len(Matches) = %d, want 2", len(results.Matches))
	}
	if results.Total != 5 {
		t.Errorf("Total = %d, want 5", results.Total)
	}

	results, err = SearchOcr(context.Background(), s, "fox", 0, 0)
	if err != nil {
		t.Fatalf("SearchOcr: %v", err)
	}
	if len(results.Matches) != 5 {
		t.Errorf("len(Matches) (default limit) = %d, want 5", len(results.Matches))
	}
}

func TestSearchOcr_NoMatchesReturnsEmptyNotError(t *testing.T) {
	s := openTestStore(t)
	seedOcr(t, s, "hello world")

	results, err := SearchOcr(context.Background(), s, "nonexistent", 0, 0)
	if err != nil {
		t.Fatalf("SearchOcr: %v", err)
	}
	if results.Total != 0 || len(results.Matches) != 0 {
		t.Errorf("results = %+v, want empty", results)
	}
}
