package indexer

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"memoire/internal/asr"
	"memoire/internal/encoder"
	"memoire/internal/metrics"
	"memoire/internal/recorder"
	"memoire/internal/runstate"
	"memoire/internal/storage"
)

// chunksPerIteration is the audio indexer's batch size, the audio analogue
// of framesPerIteration.
const chunksPerIteration = 30

// AudioConfig configures one AudioIndexer run.
type AudioConfig struct {
	DataDir string
	FPS     uint32 // reuses ocr_fps as the poll cadence; spec.md §4.8 notes
	// the audio indexer "differs only in" input source and engine.
}

// AudioIndexer is the ASR half of spec.md §4.8: pull audio chunks with no
// transcription, read their WAV samples directly (no subprocess
// extraction), transcribe, and batch-insert one row per segment. Grounded
// on original_source/src/memoire-core/src/audio_indexer.rs.
type AudioIndexer struct {
	store  *storage.Store
	engine *asr.Engine
	events <-chan recorder.ChunkFinalizedEvent
	met    *metrics.Registry
	log    *slog.Logger
	cfg    AudioConfig
}

// NewAudioIndexer builds an AudioIndexer.
func NewAudioIndexer(store *storage.Store, engine *asr.Engine, events <-chan recorder.ChunkFinalizedEvent,
	met *metrics.Registry, log *slog.Logger, cfg AudioConfig) *AudioIndexer {
	if cfg.FPS == 0 {
		cfg.FPS = 10
	}
	return &AudioIndexer{store: store, engine: engine, events: events, met: met, log: log, cfg: cfg}
}

// Run drives the indexer until running is cleared or ctx is cancelled,
// mirroring OcrIndexer.Run's rate-limit/poll/process/stats-update shape.
func (idx *AudioIndexer) Run(ctx context.Context, running *runstate.Flag) error {
	interval := time.Duration(float64(time.Second) / float64(idx.cfg.FPS))
	last := time.Now()

	for running.Running() {
		select {
		case <-ctx.Done():
			running.Stop()
			continue
		case ev := <-idx.events:
			_ = ev
		default:
		}

		elapsed := time.Since(last)
		if elapsed < interval {
			time.Sleep(interval - elapsed)
		}
		last = time.Now()

		if err := idx.runOnce(ctx); err != nil {
			if idx.log != nil {
				idx.log.Error("audio indexer iteration failed", "error", err)
			}
			time.Sleep(5 * time.Second)
		}
	}
	return nil
}

func (idx *AudioIndexer) runOnce(ctx context.Context) error {
	chunks, err := idx.store.GetAudioChunksWithoutTranscription(ctx, chunksPerIteration)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		time.Sleep(time.Second)
		return idx.refreshStats(ctx)
	}

	var segments []storage.NewAudioTranscription
	for _, chunk := range chunks {
		path := chunk.FilePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(idx.cfg.DataDir, path)
		}

		samples, err := encoder.ReadWAV(path)
		if err != nil {
			if idx.log != nil {
				idx.log.Warn("reading audio chunk failed", "chunk_id", chunk.ID, "error", err)
			}
			segments = append(segments, storage.NewAudioTranscription{AudioChunkID: chunk.ID, Text: "", Timestamp: chunk.Timestamp})
			continue
		}

		result, err := idx.engine.TranscribeSamples(ctx, samples)
		if err != nil {
			if idx.log != nil {
				idx.log.Warn("transcription failed", "chunk_id", chunk.ID, "error", err)
			}
			segments = append(segments, storage.NewAudioTranscription{AudioChunkID: chunk.ID, Text: "", Timestamp: chunk.Timestamp})
			continue
		}

		if len(result.Segments) == 0 {
			segments = append(segments, storage.NewAudioTranscription{
				AudioChunkID: chunk.ID, Text: result.Text, Timestamp: chunk.Timestamp,
			})
			continue
		}

		for _, seg := range result.Segments {
			start, end := seg.Start, seg.End
			segments = append(segments, storage.NewAudioTranscription{
				AudioChunkID: chunk.ID,
				Text:         seg.Text,
				Timestamp:    chunk.Timestamp,
				StartTime:    &start,
				EndTime:      &end,
			})
		}
	}

	if _, err := idx.store.InsertAudioTranscriptionsBatch(ctx, segments); err != nil {
		return err
	}

	return idx.refreshStats(ctx)
}

func (idx *AudioIndexer) refreshStats(ctx context.Context) error {
	stats, err := idx.store.GetAudioStats(ctx)
	if err != nil {
		return err
	}
	if idx.met != nil {
		idx.met.AudioPending.Set(float64(stats.PendingChunks))
		idx.met.AudioProcessRate.Set(stats.ProcessingRate)
	}
	return nil
}
