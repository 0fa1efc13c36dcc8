package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memoire.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_MigratesFreshDatabase(t *testing.T) {
	s := openTestStore(t)

	var version int64
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
}

func TestOpen_MigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memoire.sqlite")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()

	var version int64
	if err := s2.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
}

func TestVideoChunkRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	width := 1920
	id, err := s.InsertVideoChunk(ctx, NewVideoChunk{
		FilePath:   `C:\data\chunk-0001.mp4`,
		DeviceName: "\\\\.\\DISPLAY1",
		Width:      &width,
	})
	if err != nil {
		t.Fatalf("InsertVideoChunk: %v", err)
	}
	if id == 0 {
		t.Fatal("expected nonzero chunk id")
	}

	chunk, err := s.GetVideoChunk(ctx, id)
	if err != nil {
		t.Fatalf("GetVideoChunk: %v", err)
	}
	if chunk.DeviceName != "\\\\.\\DISPLAY1" {
		t.Errorf("DeviceName = %q", chunk.DeviceName)
	}
	if chunk.Width == nil || *chunk.Width != 1920 {
		t.Errorf("Width = %v, want 1920", chunk.Width)
	}

	if _, err := s.GetVideoChunk(ctx, id+1000); err != ErrNotFound {
		t.Errorf("GetVideoChunk(missing) = %v, want ErrNotFound", err)
	}
}

func TestInsertFramesBatch_UniqueOffsetWithinChunk(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, err := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	if err != nil {
		t.Fatalf("InsertVideoChunk: %v", err)
	}

	now := time.Now().UTC()
	frames := []NewFrame{
		{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: now},
		{VideoChunkID: chunkID, OffsetIndex: 1, Timestamp: now.Add(time.Second)},
		{VideoChunkID: chunkID, OffsetIndex: 2, Timestamp: now.Add(2 * time.Second)},
	}

	ids, err := s.InsertFramesBatch(ctx, frames)
	if err != nil {
		t.Fatalf("InsertFramesBatch: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}

	got, err := s.GetFramesWithoutOcr(ctx, 10)
	if err != nil {
		t.Fatalf("GetFramesWithoutOcr: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d pending frames, want 3", len(got))
	}
}

func TestInsertFrame_RejectsDuplicateOffsetWithinChunk(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	now := time.Now().UTC()

	if _, err := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: now}); err != nil {
		t.Fatalf("first InsertFrame: %v", err)
	}
	if _, err := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: now}); err == nil {
		t.Fatal("expected a unique-constraint error inserting a duplicate (chunk_id, offset_index)")
	}
}

func TestInsertOcrText_RejectsSecondRowForSameFrame(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	frameID, _ := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: time.Now().UTC()})

	if _, err := s.InsertOcrText(ctx, NewOcrRecord{FrameID: frameID, Text: "first pass"}); err != nil {
		t.Fatalf("first InsertOcrText: %v", err)
	}
	if _, err := s.InsertOcrText(ctx, NewOcrRecord{FrameID: frameID, Text: "second pass"}); err == nil {
		t.Fatal("expected a unique-constraint error inserting a second ocr_text row for the same frame")
	}
}

func TestInsertFramesBatch_Empty(t *testing.T) {
	s := openTestStore(t)
	ids, err := s.InsertFramesBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("InsertFramesBatch(nil): %v", err)
	}
	if ids != nil {
		t.Errorf("got %v, want nil", ids)
	}
}

func TestOcrSearch_FindsInsertedText(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	frameID, err := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: time.Now().UTC()})
	if err != nil {
		t.Fatalf("InsertFrame: %v", err)
	}

	if _, err := s.InsertOcrText(ctx, NewOcrRecord{FrameID: frameID, Text: "quarterly revenue projection spreadsheet"}); err != nil {
		t.Fatalf("InsertOcrText: %v", err)
	}

	results, err := s.SearchOcr(ctx, `"revenue"`, 10, 0)
	if err != nil {
		t.Fatalf("SearchOcr: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Frame.ID != frameID {
		t.Errorf("result frame id = %d, want %d", results[0].Frame.ID, frameID)
	}

	none, err := s.SearchOcr(ctx, `"nonexistentword"`, 10, 0)
	if err != nil {
		t.Fatalf("SearchOcr(miss): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d results for a miss, want 0", len(none))
	}
}

func TestOcrSearch_FtsStaysInSyncAfterDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	frameID, _ := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: time.Now().UTC()})
	ocrID, err := s.InsertOcrText(ctx, NewOcrRecord{FrameID: frameID, Text: "ephemeral note about onboarding"})
	if err != nil {
		t.Fatalf("InsertOcrText: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM ocr_text WHERE id = ?", ocrID); err != nil {
		t.Fatalf("delete ocr_text: %v", err)
	}

	results, err := s.SearchOcr(ctx, `"onboarding"`, 10, 0)
	if err != nil {
		t.Fatalf("SearchOcr: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results after delete, want 0 (fts trigger should have removed it)", len(results))
	}
}

func TestInsertOcrTextBatch_InsertsAllAndUpdatesFts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	now := time.Now().UTC()
	f1, _ := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: now})
	f2, _ := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 1, Timestamp: now.Add(time.Second)})

	ids, err := s.InsertOcrTextBatch(ctx, []NewOcrRecord{
		{FrameID: f1, Text: "invoice total due"},
		{FrameID: f2, Text: "unrelated screenshot"},
	})
	if err != nil {
		t.Fatalf("InsertOcrTextBatch: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}

	results, err := s.SearchOcr(ctx, `"invoice"`, 10, 0)
	if err != nil {
		t.Fatalf("SearchOcr: %v", err)
	}
	if len(results) != 1 || results[0].Frame.ID != f1 {
		t.Fatalf("SearchOcr = %+v, want one result for frame %d", results, f1)
	}
}

func TestInsertOcrTextBatch_Empty(t *testing.T) {
	s := openTestStore(t)
	ids, err := s.InsertOcrTextBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("InsertOcrTextBatch(nil): %v", err)
	}
	if ids != nil {
		t.Errorf("got %v, want nil", ids)
	}
}

func TestInsertAudioTranscriptionsBatch_InsertsAllAndUpdatesFts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, err := s.InsertAudioChunk(ctx, NewAudioChunk{FilePath: "a.wav"})
	if err != nil {
		t.Fatalf("InsertAudioChunk: %v", err)
	}

	now := time.Now().UTC()
	start1, end1 := 0.0, 1.5
	start2, end2 := 1.5, 3.0
	ids, err := s.InsertAudioTranscriptionsBatch(ctx, []NewAudioTranscription{
		{AudioChunkID: chunkID, Text: "good morning everyone", Timestamp: now, StartTime: &start1, EndTime: &end1},
		{AudioChunkID: chunkID, Text: "let's get started", Timestamp: now.Add(2 * time.Second), StartTime: &start2, EndTime: &end2},
	})
	if err != nil {
		t.Fatalf("InsertAudioTranscriptionsBatch: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}

	segments, err := s.GetTranscriptionsForChunk(ctx, chunkID)
	if err != nil {
		t.Fatalf("GetTranscriptionsForChunk: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}

	results, err := s.SearchAudio(ctx, `"started"`, 10, 0)
	if err != nil {
		t.Fatalf("SearchAudio: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestInsertAudioTranscriptionsBatch_Empty(t *testing.T) {
	s := openTestStore(t)
	ids, err := s.InsertAudioTranscriptionsBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("InsertAudioTranscriptionsBatch(nil): %v", err)
	}
	if ids != nil {
		t.Errorf("got %v, want nil", ids)
	}
}

func TestGetOcrStats_CountsPending(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	now := time.Now().UTC()
	f1, _ := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 0, Timestamp: now})
	_, _ = s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: 1, Timestamp: now.Add(time.Second)})

	if _, err := s.InsertOcrText(ctx, NewOcrRecord{FrameID: f1, Text: "hello"}); err != nil {
		t.Fatalf("InsertOcrText: %v", err)
	}

	stats, err := s.GetOcrStats(ctx)
	if err != nil {
		t.Fatalf("GetOcrStats: %v", err)
	}
	if stats.TotalFrames != 2 {
		t.Errorf("TotalFrames = %d, want 2", stats.TotalFrames)
	}
	if stats.FramesWithOcr != 1 {
		t.Errorf("FramesWithOcr = %d, want 1", stats.FramesWithOcr)
	}
	if stats.PendingFrames != 1 {
		t.Errorf("PendingFrames = %d, want 1", stats.PendingFrames)
	}
}

func TestAudioTranscriptionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, err := s.InsertAudioChunk(ctx, NewAudioChunk{FilePath: "a.wav"})
	if err != nil {
		t.Fatalf("InsertAudioChunk: %v", err)
	}

	start, end := 0.5, 3.25
	if _, err := s.InsertAudioTranscription(ctx, NewAudioTranscription{
		AudioChunkID: chunkID,
		Text:         "let's circle back on the indexing latency",
		Timestamp:    time.Now().UTC(),
		StartTime:    &start,
		EndTime:      &end,
	}); err != nil {
		t.Fatalf("InsertAudioTranscription: %v", err)
	}

	results, err := s.SearchAudio(ctx, `"latency"`, 10, 0)
	if err != nil {
		t.Fatalf("SearchAudio: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Chunk.ID != chunkID {
		t.Errorf("chunk id = %d, want %d", results[0].Chunk.ID, chunkID)
	}
	if *results[0].Transcription.StartTime != 0.5 {
		t.Errorf("StartTime = %v, want 0.5", *results[0].Transcription.StartTime)
	}
}

func TestGetChunksWithFrameCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chunkID, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "c.mp4", DeviceName: "DISPLAY1"})
	now := time.Now().UTC()
	for i := int64(0); i < 3; i++ {
		if _, err := s.InsertFrame(ctx, NewFrame{VideoChunkID: chunkID, OffsetIndex: i, Timestamp: now.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("InsertFrame: %v", err)
		}
	}

	rows, err := s.GetChunksWithFrameCounts(ctx, 10, 0)
	if err != nil {
		t.Fatalf("GetChunksWithFrameCounts: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].FrameCount != 3 {
		t.Errorf("FrameCount = %d, want 3", rows[0].FrameCount)
	}
}

func TestGetMonitorSummaries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d1, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "a.mp4", DeviceName: "DISPLAY1"})
	d2, _ := s.InsertVideoChunk(ctx, NewVideoChunk{FilePath: "b.mp4", DeviceName: "DISPLAY2"})
	now := time.Now().UTC()
	if _, err := s.InsertFrame(ctx, NewFrame{VideoChunkID: d1, OffsetIndex: 0, Timestamp: now}); err != nil {
		t.Fatalf("InsertFrame: %v", err)
	}
	if _, err := s.InsertFrame(ctx, NewFrame{VideoChunkID: d2, OffsetIndex: 0, Timestamp: now}); err != nil {
		t.Fatalf("InsertFrame: %v", err)
	}

	summaries, err := s.GetMonitorSummaries(ctx)
	if err != nil {
		t.Fatalf("GetMonitorSummaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
}

func TestParseTimestamp_AcceptsBothFormats(t *testing.T) {
	rfc, err := parseTimestamp("2025-01-02T15:04:05Z")
	if err != nil {
		t.Fatalf("parseTimestamp(rfc3339): %v", err)
	}
	if rfc.Year() != 2025 {
		t.Errorf("year = %d, want 2025", rfc.Year())
	}

	sqliteFmt, err := parseTimestamp("2025-01-02 15:04:05")
	if err != nil {
		t.Fatalf("parseTimestamp(sqlite): %v", err)
	}
	if !sqliteFmt.Equal(rfc) {
		t.Errorf("sqlite-format parse = %v, want %v", sqliteFmt, rfc)
	}
}
