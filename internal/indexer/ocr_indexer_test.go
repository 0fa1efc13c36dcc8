package indexer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"memoire/internal/ocr"
	"memoire/internal/storage"
)

func openIndexerTestStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memoire.sqlite")
	s, err := storage.Open(path)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestOcrIndexer(t *testing.T, s *storage.Store, backend *ocr.FakeBackend) *OcrIndexer {
	t.Helper()
	engine, err := ocr.New(backend, "en-US")
	if err != nil {
		t.Fatalf("ocr.New: %v", err)
	}
	idx := NewOcrIndexer(s, engine, nil, nil, nil, OcrConfig{DataDir: t.TempDir(), FPS: 1000})
	idx.extractFn = func(ctx context.Context, videoPath string, offset int64, width, height int) ([]byte, error) {
		return make([]byte, width*height*4), nil
	}
	return idx
}

func TestOcrIndexer_RunOnceInsertsBatchAndUpdatesStats(t *testing.T) {
	s := openIndexerTestStore(t)
	ctx := context.Background()

	width, height := 4, 4
	chunkID, err := s.InsertVideoChunk(ctx, storage.NewVideoChunk{
		FilePath: "chunk.mp4", DeviceName: "DISPLAY1", Width: &width, Height: &height,
	})
	if err != nil {
		t.Fatalf("InsertVideoChunk: %v", err)
	}

	now := time.Now().UTC()
	frameIDs := make([]int64, 3)
	for i := range frameIDs {
		id, err := s.InsertFrame(ctx, storage.NewFrame{
			VideoChunkID: chunkID, OffsetIndex: int64(i), Timestamp: now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("InsertFrame: %v", err)
		}
		frameIDs[i] = id
	}

	backend := ocr.NewFakeBackend(ocr.BackendLine{Text: "hello world"})
	idx := newTestOcrIndexer(t, s, backend)

	if err := idx.runOnce(ctx); err != nil {
		t.Fatalf("runOnce: %v", err)
	}

	for _, id := range frameIDs {
		fw, err := s.GetFrameWithOcr(ctx, id)
		if err != nil {
			t.Fatalf("GetFrameWithOcr(%d): %v", id, err)
		}
		if fw.Ocr == nil {
			t.Fatalf("frame %d has no ocr row", id)
		}
		if fw.Ocr.Text != "hello world" {
			t.Errorf("frame %d text = %q, want %q", id, fw.Ocr.Text, "hello world")
		}
	}

	stats, err := s.GetOcrStats(ctx)
	if err != nil {
		t.Fatalf("GetOcrStats: %v", err)
	}
	if stats.PendingFrames != 0 {
		t.Errorf("PendingFrames = %d, want 0", stats.PendingFrames)
	}
	if stats.FramesWithOcr != 3 {
		t.Errorf("FramesWithOcr = %d, want 3", stats.FramesWithOcr)
	}
}

func TestOcrIndexer_RunOnceNoPendingFramesIsNoop(t *testing.T) {
	s := openIndexerTestStore(t)
	idx := newTestOcrIndexer(t, s, ocr.NewFakeBackend())

	start := time.Now()
	if err := idx.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}
	if time.Since(start) < time.Second {
		t.Error("expected the empty-batch path to sleep at least 1s")
	}
}

func TestOcrIndexer_ExtractionFailureRecordsEmptyResult(t *testing.T) {
	s := openIndexerTestStore(t)
	ctx := context.Background()

	width, height := 4, 4
	chunkID, err := s.InsertVideoChunk(ctx, storage.NewVideoChunk{
		FilePath: "chunk.mp4", DeviceName: "DISPLAY1", Width: &width, Height: &height,
	})
	if err != nil {
		t.Fatalf("InsertVideoChunk: %v", err)
	}
	frameID, err := s.InsertFrame(ctx, storage.NewFrame{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: time.Now().UTC()})
	if err != nil {
		t.Fatalf("InsertFrame: %v", err)
	}

	idx := newTestOcrIndexer(t, s, ocr.NewFakeBackend(ocr.BackendLine{Text: "should not appear"}))
	idx.extractFn = func(ctx context.Context, videoPath string, offset int64, width, height int) ([]byte, error) {
		return nil, errExtractBoom
	}

	if err := idx.runOnce(ctx); err != nil {
		t.Fatalf("runOnce: %v", err)
	}

	fw, err := s.GetFrameWithOcr(ctx, frameID)
	if err != nil {
		t.Fatalf("GetFrameWithOcr: %v", err)
	}
	if fw.Ocr == nil {
		t.Fatal("expected an ocr row recording the empty result")
	}
	if fw.Ocr.Text != "" {
		t.Errorf("Text = %q, want empty", fw.Ocr.Text)
	}
}

var errExtractBoom = &fakeExtractError{}

type fakeExtractError struct{}

func (*fakeExtractError) Error() string { return "simulated extraction failure" }
