// Package storage is the relational store of chunks, frames, OCR text and
// audio transcriptions described in spec.md §4.4: a single SQLite database
// with WAL enabled and an attached FTS5 inverted index, migration-versioned
// via PRAGMA user_version.
package storage

import "time"

// VideoChunk is a contiguous encoded video file covering at most the
// configured chunk duration. Never mutated after creation.
type VideoChunk struct {
	ID        int64
	FilePath  string
	DeviceName string
	CreatedAt time.Time
	Width     *int
	Height    *int
}

// NewVideoChunk is the set of fields the recorder supplies when opening a
// new chunk.
type NewVideoChunk struct {
	FilePath   string
	DeviceName string
	Width      *int
	Height     *int
}

// Frame is one captured still from one monitor inside one chunk.
type Frame struct {
	ID            int64
	VideoChunkID  int64
	OffsetIndex   int64
	Timestamp     time.Time
	AppName       *string
	WindowName    *string
	BrowserURL    *string
	Focused       bool
	FrameHash     *int64
}

// NewFrame is the set of fields the recorder buffers for a batch insert.
type NewFrame struct {
	VideoChunkID int64
	OffsetIndex  int64
	Timestamp    time.Time
	AppName      *string
	WindowName   *string
	BrowserURL   *string
	Focused      bool
	FrameHash    *int64
}

// OcrRecord holds at most one row per frame: the concatenated recognized
// text, optional line-geometry JSON, and a heuristic confidence in [0,1].
type OcrRecord struct {
	ID         int64
	FrameID    int64
	Text       string
	TextJSON   *string
	Confidence *float64
}

// NewOcrRecord is the set of fields the OCR indexer inserts.
type NewOcrRecord struct {
	FrameID    int64
	Text       string
	TextJSON   *string
	Confidence *float64
}

// FrameWithOcr is a frame left-joined with its optional OCR row.
type FrameWithOcr struct {
	Frame
	Ocr *OcrRecord
}

// AudioChunk is a WAV file of at most the configured audio chunk duration.
type AudioChunk struct {
	ID             int64
	FilePath       string
	DeviceName     *string
	IsInputDevice  *bool
	Timestamp      time.Time
}

// NewAudioChunk is the set of fields the recorder supplies when opening a
// new audio chunk.
type NewAudioChunk struct {
	FilePath      string
	DeviceName    *string
	IsInputDevice *bool
}

// AudioTranscription is zero-or-more-per-audio-chunk, ordered by StartTime.
type AudioTranscription struct {
	ID           int64
	AudioChunkID int64
	Text         string
	Timestamp    time.Time
	SpeakerID    *int64
	StartTime    *float64
	EndTime      *float64
}

// NewAudioTranscription is the set of fields the audio indexer inserts.
type NewAudioTranscription struct {
	AudioChunkID int64
	Text         string
	Timestamp    time.Time
	SpeakerID    *int64
	StartTime    *float64
	EndTime      *float64
}

// ChunkWithFrameCount is a video chunk annotated with the number of frame
// rows referencing it — used by cmd/memoire-monitor. Supplemental to spec.md, ported from
// original_source/src/memoire-db/src/schema.rs::ChunkWithFrameCount.
type ChunkWithFrameCount struct {
	VideoChunk
	FrameCount int64
}

// MonitorSummary is a per-device aggregate: total chunks, total frames, and
// the most recent capture timestamp. Supplemental, ported from
// original_source/src/memoire-db/src/schema.rs::MonitorSummary.
type MonitorSummary struct {
	DeviceName    string
	TotalChunks   int64
	TotalFrames   int64
	LatestCapture *time.Time
}

// OcrStats summarizes OCR indexing progress for spec.md §4.4's
// get_ocr_stats.
type OcrStats struct {
	TotalFrames    int64
	FramesWithOcr  int64
	PendingFrames  int64
	ProcessingRate float64
	LastUpdated    time.Time
}

// AudioStats is the audio-indexer analogue of OcrStats.
type AudioStats struct {
	TotalChunks       int64
	ChunksTranscribed int64
	PendingChunks     int64
	ProcessingRate    float64
	LastUpdated       time.Time
}

// SearchOcrResult pairs a matched OCR record with the frame it belongs to,
// as spec.md §4.9 requires.
type SearchOcrResult struct {
	Ocr   OcrRecord
	Frame Frame
}

// SearchAudioResult pairs a matched transcription with its audio chunk.
type SearchAudioResult struct {
	Transcription AudioTranscription
	Chunk         AudioChunk
}
