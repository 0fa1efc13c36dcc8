package recorder

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"memoire/internal/capture"
	"memoire/internal/config"
	"memoire/internal/encoder"
	"memoire/internal/metrics"
	"memoire/internal/runstate"
	"memoire/internal/storage"
)

// Recorder is the central state machine of spec.md §4.5: one instance
// manages every display and audio endpoint, grounded on
// original_source/src/memoire-core/src/recorder.rs::Recorder, restructured
// around internal/runstate.Flag instead of an atomic bool threaded through
// every call and a channel-based eventBus instead of tokio::broadcast.
type Recorder struct {
	cfg   config.Config
	store *storage.Store

	monitors []*monitorState
	audios   []*audioState

	bus *eventBus
	log *slog.Logger
	met *metrics.Registry

	wg sync.WaitGroup
}

// New initializes capture for every monitor displayBackend reports and
// every device audioBackend reports, skipping (with a warning) any that
// fail to open. At least one monitor is required; audioBackend may be nil
// to disable audio capture entirely.
func New(cfg config.Config, store *storage.Store, displayBackend capture.DisplayBackend,
	audioBackend capture.AudioBackend, log *slog.Logger, met *metrics.Registry) (*Recorder, error) {

	if log != nil {
		log = log.With("run_id", uuid.NewString())
	}

	monitorInfos, err := displayBackend.EnumerateMonitors()
	if err != nil {
		return nil, err
	}

	videosDir := filepath.Join(cfg.DataDir, "videos")
	videoCfg := encoder.VideoConfig{
		OutputDir:     videosDir,
		FPS:           cfg.FPS,
		UseHWEncoding: cfg.UseHWEncoding,
		Quality:       23,
		ChunkDuration: time.Duration(cfg.ChunkDurationSecs) * time.Second,
	}

	r := &Recorder{cfg: cfg, store: store, bus: newEventBus(), log: log, met: met}

	for _, info := range monitorInfos {
		ms, err := newMonitorState(displayBackend, info, videoCfg, int(cfg.DedupThreshold), log, met)
		if err != nil {
			if log != nil {
				log.Warn("failed to initialize recorder for monitor", "monitor", info.Name, "error", err)
			}
			continue
		}
		r.monitors = append(r.monitors, ms)
	}
	if len(r.monitors) == 0 {
		return nil, capture.ErrNoMonitors
	}

	if audioBackend != nil {
		audioDir := filepath.Join(cfg.DataDir, "audio")
		audioCfg := encoder.AudioConfig{
			OutputDir:     audioDir,
			ChunkDuration: time.Duration(cfg.AudioChunkDurationSecs) * time.Second,
		}
		devices, err := audioBackend.EnumerateDevices()
		if err != nil {
			if log != nil {
				log.Warn("enumerating audio devices", "error", err)
			}
		}
		for _, d := range devices {
			as, err := newAudioState(audioBackend, d, !d.IsInput, audioCfg, log)
			if err != nil {
				if log != nil {
					log.Warn("failed to initialize audio capture", "device", d.Name, "error", err)
				}
				continue
			}
			r.audios = append(r.audios, as)
		}
	}

	return r, nil
}

// Subscribe returns a channel of chunk-finalized events for an indexer to
// consume; each subscriber gets its own independent channel.
func (r *Recorder) Subscribe() <-chan ChunkFinalizedEvent {
	return r.bus.Subscribe()
}

// Run drives capture until running is cleared or ctx is cancelled,
// matching spec.md §4.5's outer loop: sleep to respect the configured
// frame interval (elapsed-aware), terminating cleanly by flushing every
// batch and finalizing every open chunk.
func (r *Recorder) Run(ctx context.Context, running *runstate.Flag) error {
	audioCtx, cancelAudio := context.WithCancel(ctx)
	defer cancelAudio()

	for _, a := range r.audios {
		a := a
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := a.run(audioCtx, r.store, r.bus); err != nil && r.log != nil {
				r.log.Error("audio capture loop exited", "device", a.info.Name, "error", err)
			}
		}()
	}

	frameInterval := time.Duration(float64(time.Second) / r.cfg.FPS)
	lastCapture := time.Now()

	for running.Running() {
		select {
		case <-ctx.Done():
			running.Stop()
			continue
		default:
		}

		elapsed := time.Since(lastCapture)
		if elapsed < frameInterval {
			time.Sleep(frameInterval - elapsed)
		}
		lastCapture = time.Now()

		for _, m := range r.monitors {
			_, err := m.captureOnce(ctx, r.store, r.bus)
			if err == nil {
				continue
			}
			if r.log != nil {
				r.log.Error("capture error", "monitor", m.info.Name, "error", err)
			}
			if errors.Is(err, capture.ErrDeviceLost) || m.consecutiveErrors >= maxConsecutiveErrors {
				if reErr := m.reinitialize(ctx, r.store, r.bus); reErr != nil && r.log != nil {
					r.log.Error("reinitializing monitor", "monitor", m.info.Name, "error", reErr)
				}
			}
		}
	}

	cancelAudio()
	r.wg.Wait()

	var firstErr error
	for _, m := range r.monitors {
		if err := m.shutdown(context.Background(), r.store, r.bus); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
