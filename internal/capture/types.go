// Package capture defines the per-monitor screen and per-device audio
// capture endpoints (components C1/C2), and their deterministic
// cross-platform fakes. Ported from
// original_source/src/memoire-capture/src/{screen,monitor,audio}.rs.
package capture

import "time"

// MonitorInfo describes one display output, the Go analogue of
// monitor.rs::MonitorInfo.
type MonitorInfo struct {
	Name         string
	Width        int
	Height       int
	AdapterIndex uint32
	OutputIndex  uint32
	Primary      bool
}

// CapturedFrame is one tightly-packed RGBA still, ready for perceptual
// hashing and piping into the media encoder.
type CapturedFrame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// AudioDeviceInfo describes one WASAPI-visible endpoint, the Go analogue of
// audio.rs::AudioDeviceInfo.
type AudioDeviceInfo struct {
	ID            string
	Name          string
	IsInput       bool
	IsDefault     bool
	SampleRate    uint32
	Channels      uint16
	BitsPerSample uint16
}

// AudioSamples is one burst of interleaved f32 PCM at the device's native
// sample rate and channel count, normalized to [-1.0, 1.0]. Channel
// fold-down and resampling to the target 16 kHz mono are the media
// encoder's job, not the duplicator's — the duplicator only reports what
// the device actually produced.
type AudioSamples struct {
	Data       []float32
	SampleRate uint32
	Channels   uint16
	Timestamp  time.Time
}
