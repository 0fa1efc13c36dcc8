package indexer

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"memoire/internal/metrics"
	"memoire/internal/ocr"
	"memoire/internal/recorder"
	"memoire/internal/runstate"
	"memoire/internal/storage"
)

// maxConcurrentExtractions bounds ffmpeg subprocess fan-out, spec.md §4.8
// step 3's cap of 4 concurrent frame extractions.
const maxConcurrentExtractions = 4

// framesPerIteration is the OCR indexer's batch size, spec.md §4.8 step 2.
const framesPerIteration = 30

// OcrConfig configures one OcrIndexer run.
type OcrConfig struct {
	DataDir string
	FPS     uint32 // ocr_fps, spec.md §6
}

// OcrIndexer is the OCR half of spec.md §4.8: pull unindexed frames, extract
// their pixels with ffmpeg, recognize text, and batch-insert the results.
// Grounded on original_source/src/memoire-core/src/indexer.rs.
type OcrIndexer struct {
	store  *storage.Store
	engine *ocr.Engine
	events <-chan recorder.ChunkFinalizedEvent
	met    *metrics.Registry
	log    *slog.Logger
	cfg    OcrConfig

	chunkCache map[int64]storage.VideoChunk

	// extractFn and probeFn default to extractFrame and probeDimensions;
	// tests override them to avoid shelling out to a real ffmpeg/ffprobe.
	extractFn func(ctx context.Context, videoPath string, offset int64, width, height int) ([]byte, error)
	probeFn   func(ctx context.Context, videoPath string) (int, int, error)
}

// NewOcrIndexer builds an OcrIndexer. events may be nil; Run only drains
// it, and the work always comes from the poll of step 2.
func NewOcrIndexer(store *storage.Store, engine *ocr.Engine, events <-chan recorder.ChunkFinalizedEvent,
	met *metrics.Registry, log *slog.Logger, cfg OcrConfig) *OcrIndexer {
	if cfg.FPS == 0 {
		cfg.FPS = 10
	}
	return &OcrIndexer{
		store: store, engine: engine, events: events, met: met, log: log, cfg: cfg,
		chunkCache: make(map[int64]storage.VideoChunk),
		extractFn:  extractFrame,
		probeFn:    probeDimensions,
	}
}

// Run drives the indexer until running is cleared or ctx is cancelled,
// matching spec.md §4.8's outer loop exactly: rate limit, pull a batch,
// extract concurrently, recognize sequentially, batch insert, update stats.
func (idx *OcrIndexer) Run(ctx context.Context, running *runstate.Flag) error {
	interval := time.Duration(float64(time.Second) / float64(idx.cfg.FPS))
	last := time.Now()

	for running.Running() {
		select {
		case <-ctx.Done():
			running.Stop()
			continue
		case ev := <-idx.events:
			// Draining the event channel keeps the recorder's
			// non-blocking Publish from silently dropping backlog;
			// the actual work still comes from the poll below since
			// a single event names one chunk, not the oldest pending
			// frame across every chunk.
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
				idx.log.Error("ocr indexer iteration failed", "error", err)
			}
			time.Sleep(5 * time.Second)
		}
	}
	return nil
}

func (idx *OcrIndexer) runOnce(ctx context.Context) error {
	frames, err := idx.store.GetFramesWithoutOcr(ctx, framesPerIteration)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		time.Sleep(time.Second)
		return idx.refreshStats(ctx)
	}

	extracted, err := idx.extractBatch(ctx, frames)
	if err != nil {
		return err
	}

	records := make([]storage.NewOcrRecord, 0, len(extracted))
	for _, ef := range extracted {
		if ef.err != nil {
			if idx.log != nil {
				idx.log.Warn("frame extraction failed", "frame_id", ef.frame.ID, "error", ef.err)
			}
			records = append(records, storage.NewOcrRecord{FrameID: ef.frame.ID, Text: ""})
			continue
		}

		result, err := idx.engine.Recognize(ctx, ef.data, ef.width, ef.height)
		if err != nil {
			if idx.log != nil {
				idx.log.Warn("ocr recognition failed", "frame_id", ef.frame.ID, "error", err)
			}
			records = append(records, storage.NewOcrRecord{FrameID: ef.frame.ID, Text: ""})
			continue
		}

		rec := storage.NewOcrRecord{FrameID: ef.frame.ID, Text: result.Text}
		if len(result.Lines) > 0 {
			if b, jerr := sonic.Marshal(result.Lines); jerr == nil {
				s := string(b)
				rec.TextJSON = &s
			}
		}
		conf := result.Confidence
		rec.Confidence = &conf
		records = append(records, rec)
	}

	if _, err := idx.store.InsertOcrTextBatch(ctx, records); err != nil {
		return err
	}

	return idx.refreshStats(ctx)
}

type extractedFrameResult struct {
	frame  storage.Frame
	data   []byte
	width  int
	height int
	err    error
}

// extractBatch runs ffmpeg extraction for each frame under a weighted
// semaphore capped at maxConcurrentExtractions, per spec.md §4.8 step 3.
// Chunk metadata (file path, cached dimensions) is resolved once per
// distinct chunk before the pool starts, since it's a cheap store lookup
// not part of the bounded subprocess fan-out.
func (idx *OcrIndexer) extractBatch(ctx context.Context, frames []storage.Frame) ([]extractedFrameResult, error) {
	results := make([]extractedFrameResult, len(frames))

	sem := semaphore.NewWeighted(maxConcurrentExtractions)
	g, gctx := errgroup.WithContext(ctx)

	for i, f := range frames {
		i, f := i, f
		_, path, width, height, err := idx.resolveChunk(gctx, f.VideoChunkID)
		if err != nil {
			results[i] = extractedFrameResult{frame: f, err: err}
			continue
		}

		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = extractedFrameResult{frame: f, err: err}
				return nil
			}
			defer sem.Release(1)

			data, err := idx.extractFn(gctx, path, f.OffsetIndex, width, height)
			results[i] = extractedFrameResult{frame: f, data: data, width: width, height: height, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// resolveChunk returns the absolute video file path plus width/height for
// chunkID, consulting idx.chunkCache first and probing with ffprobe only
// when the chunk predates cached dimensions.
func (idx *OcrIndexer) resolveChunk(ctx context.Context, chunkID int64) (storage.VideoChunk, string, int, int, error) {
	chunk, ok := idx.chunkCache[chunkID]
	if !ok {
		var err error
		chunk, err = idx.store.GetVideoChunk(ctx, chunkID)
		if err != nil {
			return storage.VideoChunk{}, "", 0, 0, err
		}
		idx.chunkCache[chunkID] = chunk
	}

	path := filepath.Join(idx.cfg.DataDir, chunk.FilePath)

	if chunk.Width != nil && chunk.Height != nil {
		return chunk, path, *chunk.Width, *chunk.Height, nil
	}

	w, h, err := idx.probeFn(ctx, path)
	if err != nil {
		return storage.VideoChunk{}, "", 0, 0, err
	}
	chunk.Width, chunk.Height = &w, &h
	idx.chunkCache[chunkID] = chunk
	return chunk, path, w, h, nil
}

func (idx *OcrIndexer) refreshStats(ctx context.Context) error {
	stats, err := idx.store.GetOcrStats(ctx)
	if err != nil {
		return err
	}
	if idx.met != nil {
		idx.met.OcrPendingFrames.Set(float64(stats.PendingFrames))
		idx.met.OcrProcessedRate.Set(stats.ProcessingRate)
	}
	return nil
}
