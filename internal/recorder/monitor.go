package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"memoire/internal/capture"
	"memoire/internal/encoder"
	"memoire/internal/hash"
	"memoire/internal/metrics"
	"memoire/internal/storage"
)

// frameBatchSize and frameFlushInterval are spec.md §4.5's batch-flush
// thresholds: whichever is reached first triggers a single transactional
// insert.
const (
	frameBatchSize      = 30
	frameFlushInterval  = 5 * time.Second
	maxConsecutiveErrors = 10
	captureTimeout      = 100 * time.Millisecond
)

// monitorState is one monitor's capture/encode/buffer state, ported
// method-for-method from
// original_source/src/memoire-core/src/recorder.rs::MonitorRecorder.
type monitorState struct {
	info    capture.MonitorInfo
	backend capture.DisplayBackend
	display capture.Display

	encCfg encoder.VideoConfig
	enc    *encoder.VideoEncoder
	device string // sanitized device name, used for encoder output dir and events

	dedupThreshold int

	hasChunk       bool
	currentChunkID int64
	frameIndex     int64
	chunkIndex     uint64

	consecutiveErrors int
	pendingFrames     []storage.NewFrame
	lastFlush         time.Time
	lastHash          *uint64
	skippedFrames     uint64

	pngFallbackUsed bool // one-shot per chunk; reset on finalize

	log *slog.Logger
	met *metrics.Registry
}

func newMonitorState(backend capture.DisplayBackend, info capture.MonitorInfo, encCfg encoder.VideoConfig,
	dedupThreshold int, log *slog.Logger, met *metrics.Registry) (*monitorState, error) {

	device := SanitizeDeviceName(info.Name)
	display, err := backend.OpenDisplay(info)
	if err != nil {
		return nil, fmt.Errorf("recorder: opening display %s: %w", info.Name, err)
	}
	enc, err := encoder.NewVideoEncoder(encCfg, device)
	if err != nil {
		display.Close()
		return nil, fmt.Errorf("recorder: creating video encoder for %s: %w", info.Name, err)
	}

	return &monitorState{
		info:           info,
		backend:        backend,
		display:        display,
		encCfg:         encCfg,
		enc:            enc,
		device:         device,
		dedupThreshold: dedupThreshold,
		lastFlush:      time.Now(),
		pendingFrames:  make([]storage.NewFrame, 0, frameBatchSize),
		log:            log,
		met:            met,
	}, nil
}

// captureOnce performs one spec.md §4.5 "per-monitor capture step" and
// reports whether a frame was retained (as opposed to skipped as a
// duplicate or not yet available).
func (m *monitorState) captureOnce(ctx context.Context, store *storage.Store, bus *eventBus) (bool, error) {
	frame, err := m.display.CaptureFrame(ctx, captureTimeout)
	if err != nil {
		if errors.Is(err, capture.ErrDeviceLost) {
			return false, err
		}
		m.consecutiveErrors++
		return false, err
	}
	if frame == nil {
		return false, nil
	}
	m.consecutiveErrors = 0

	frameHash := hash.Perceptual(frame.Data, frame.Width, frame.Height)
	if m.lastHash != nil && hash.Distance(*m.lastHash, frameHash) <= m.dedupThreshold {
		m.skippedFrames++
		if m.met != nil {
			m.met.FramesSkipped.WithLabelValues(m.device).Inc()
		}
		return false, nil
	}
	m.lastHash = &frameHash

	if !m.hasChunk {
		if err := m.startChunk(ctx, store, frame); err != nil {
			return false, err
		}
	}

	if err := m.enc.AddFrame(frame.Data, frame.Width, frame.Height, frame.Timestamp); err != nil {
		if errors.Is(err, encoder.ErrBrokenPipe) && !m.pngFallbackUsed {
			m.pngFallbackUsed = true
			if fallbackErr := m.enc.EnablePNGFallback(); fallbackErr != nil {
				return false, fmt.Errorf("recorder: png fallback after broken pipe: %w", fallbackErr)
			}
			if err := m.enc.AddFrame(frame.Data, frame.Width, frame.Height, frame.Timestamp); err != nil {
				return false, fmt.Errorf("recorder: png fallback add_frame: %w", err)
			}
		} else {
			return false, fmt.Errorf("recorder: encoder add_frame: %w", err)
		}
	}

	hashCopy := int64(frameHash)
	m.pendingFrames = append(m.pendingFrames, storage.NewFrame{
		VideoChunkID: m.currentChunkID,
		OffsetIndex:  m.frameIndex,
		Timestamp:    frame.Timestamp,
		Focused:      true,
		FrameHash:    &hashCopy,
	})
	m.frameIndex++
	if m.met != nil {
		m.met.FramesCaptured.WithLabelValues(m.device).Inc()
	}

	if len(m.pendingFrames) >= frameBatchSize || time.Since(m.lastFlush) >= frameFlushInterval {
		if err := m.flush(ctx, store); err != nil {
			return true, err
		}
	}

	if m.enc.ReachedDuration(frame.Timestamp) {
		if err := m.finalizeChunk(ctx, store, bus); err != nil {
			return true, err
		}
	}

	return true, nil
}

func (m *monitorState) startChunk(ctx context.Context, store *storage.Store, frame *capture.CapturedFrame) error {
	if ratio, err := diskFreeRatio(m.encCfg.OutputDir); err == nil {
		if m.met != nil {
			m.met.DiskFreeRatio.WithLabelValues(m.encCfg.OutputDir).Set(ratio)
		}
		if ratio < minDiskFreeRatio && m.log != nil {
			m.log.Warn("data directory is low on free space", "monitor", m.info.Name, "free_ratio", ratio)
		}
	} else if m.log != nil {
		m.log.Debug("checking disk space", "error", err)
	}

	width, height := frame.Width, frame.Height
	path := fmt.Sprintf("videos/%s/%s/chunk_%s_%d.mp4",
		m.device, frame.Timestamp.Format("2006-01-02"), frame.Timestamp.Format("15-04-05"), m.chunkIndex)

	id, err := store.InsertVideoChunk(ctx, storage.NewVideoChunk{
		FilePath:   path,
		DeviceName: m.info.Name,
		Width:      &width,
		Height:     &height,
	})
	if err != nil {
		return fmt.Errorf("recorder: inserting video chunk: %w", err)
	}
	m.currentChunkID = id
	m.hasChunk = true
	m.frameIndex = 0
	m.pngFallbackUsed = false
	return nil
}

func (m *monitorState) flush(ctx context.Context, store *storage.Store) error {
	if len(m.pendingFrames) == 0 {
		return nil
	}
	if _, err := store.InsertFramesBatch(ctx, m.pendingFrames); err != nil {
		return fmt.Errorf("recorder: flushing frame batch: %w", err)
	}
	m.pendingFrames = m.pendingFrames[:0]
	m.lastFlush = time.Now()
	return nil
}

// finalizeChunk implements spec.md §4.5's chunk-finalize contract: pending
// frame metadata must be flushed before the encoder is closed, or a row
// could reference a file still missing its last frames.
func (m *monitorState) finalizeChunk(ctx context.Context, store *storage.Store, bus *eventBus) error {
	if err := m.flush(ctx, store); err != nil {
		return err
	}
	if !m.hasChunk {
		return nil
	}

	path, err := m.enc.FinalizeChunk()
	chunkID := m.currentChunkID
	m.hasChunk = false
	m.currentChunkID = 0
	m.chunkIndex++

	if err != nil {
		if errors.Is(err, encoder.ErrNoFrames) {
			return nil
		}
		if m.log != nil {
			m.log.Warn("finalizing video chunk", "monitor", m.info.Name, "error", err)
		}
	}
	if bus != nil && path != "" {
		bus.Publish(ChunkFinalizedEvent{Kind: ChunkVideo, ChunkID: chunkID, FilePath: path, DeviceName: m.info.Name})
	}
	if m.met != nil {
		m.met.ChunksFinalized.WithLabelValues(m.device).Inc()
	}
	return nil
}

// reinitialize reopens the display endpoint after repeated capture
// failures or a device-lost error, finalizing whatever chunk was open
// first.
func (m *monitorState) reinitialize(ctx context.Context, store *storage.Store, bus *eventBus) error {
	_ = m.finalizeChunk(ctx, store, bus)

	if m.display != nil {
		m.display.Close()
	}
	display, err := m.backend.OpenDisplay(m.info)
	if err != nil {
		return fmt.Errorf("recorder: reinitializing display %s: %w", m.info.Name, err)
	}
	m.display = display
	m.consecutiveErrors = 0
	m.lastHash = nil
	return nil
}

func (m *monitorState) shutdown(ctx context.Context, store *storage.Store, bus *eventBus) error {
	if err := m.finalizeChunk(ctx, store, bus); err != nil {
		return err
	}
	if m.display != nil {
		return m.display.Close()
	}
	return nil
}
