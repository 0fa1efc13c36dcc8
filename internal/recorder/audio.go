package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"memoire/internal/capture"
	"memoire/internal/encoder"
	"memoire/internal/storage"
)

// audioState is one audio endpoint's capture/resample/encode state. Unlike
// monitorState, which is driven by the recorder's fixed-interval outer
// loop, audio arrives as bursts on the channel capture.Audio.Start
// returns, so it runs its own goroutine for the lifetime of the recorder.
type audioState struct {
	info       capture.AudioDeviceInfo
	audio      capture.Audio
	resampler  *encoder.Resampler
	enc        *encoder.AudioEncoder
	deviceName string // sanitized
	isInput    bool

	chunkStart time.Time

	log *slog.Logger
}

func newAudioState(backend capture.AudioBackend, info capture.AudioDeviceInfo, loopback bool,
	encCfg encoder.AudioConfig, log *slog.Logger) (*audioState, error) {

	deviceName := SanitizeDeviceName(info.Name)
	if loopback {
		deviceName = "loopback"
	}

	audio, err := backend.OpenAudio(info.ID, loopback)
	if err != nil {
		return nil, fmt.Errorf("recorder: opening audio device %s: %w", info.Name, err)
	}
	enc, err := encoder.NewAudioEncoder(encCfg, deviceName)
	if err != nil {
		return nil, fmt.Errorf("recorder: creating audio encoder for %s: %w", info.Name, err)
	}

	return &audioState{
		info:       info,
		audio:      audio,
		resampler:  encoder.NewResampler(int(info.SampleRate)),
		enc:        enc,
		deviceName: deviceName,
		isInput:    info.IsInput,
		log:        log,
	}, nil
}

// run streams samples until ctx is cancelled, at which point it finalizes
// any in-flight chunk before returning.
func (a *audioState) run(ctx context.Context, store *storage.Store, bus *eventBus) error {
	ch, err := a.audio.Start(ctx)
	if err != nil {
		return fmt.Errorf("recorder: starting audio capture on %s: %w", a.info.Name, err)
	}
	defer a.audio.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.finalize(context.Background(), store, bus)
		case samples, ok := <-ch:
			if !ok {
				return a.finalize(context.Background(), store, bus)
			}
			if a.chunkStart.IsZero() {
				a.chunkStart = samples.Timestamp
			}
			mono := encoder.FoldDown(samples.Data, int(samples.Channels))
			resampled := a.resampler.Resample(mono)

			path, err := a.enc.AddSamples(resampled, samples.Timestamp)
			if err != nil {
				if a.log != nil {
					a.log.Warn("adding audio samples", "device", a.info.Name, "error", err)
				}
				continue
			}
			if path != "" {
				a.publishChunk(ctx, store, bus, path)
				a.chunkStart = time.Time{}
			}
		}
	}
}

func (a *audioState) finalize(ctx context.Context, store *storage.Store, bus *eventBus) error {
	path, err := a.enc.FinalizeChunk()
	if err != nil {
		if errors.Is(err, encoder.ErrNoFrames) {
			return nil
		}
		return fmt.Errorf("recorder: finalizing audio chunk for %s: %w", a.info.Name, err)
	}
	a.publishChunk(ctx, store, bus, path)
	return nil
}

func (a *audioState) publishChunk(ctx context.Context, store *storage.Store, bus *eventBus, path string) {
	isInput := a.isInput
	deviceName := a.deviceName
	id, err := store.InsertAudioChunk(ctx, storage.NewAudioChunk{
		FilePath:      path,
		DeviceName:    &deviceName,
		IsInputDevice: &isInput,
	})
	if err != nil {
		if a.log != nil {
			a.log.Warn("inserting audio chunk row", "device", a.info.Name, "error", err)
		}
		return
	}
	if bus != nil {
		bus.Publish(ChunkFinalizedEvent{Kind: ChunkAudio, ChunkID: id, FilePath: path, DeviceName: deviceName})
	}
}
