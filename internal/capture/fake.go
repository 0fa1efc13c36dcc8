package capture

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// FakeDisplayBackend is a deterministic, cross-platform stand-in for the
// real GDI backend, used by recorder tests and on non-Windows build
// hosts. Each monitor produces a solid-color frame whose color increments
// by one shade per capture, giving every test a reproducible sequence of
// distinct-then-repeating frames without any real display hardware.
type FakeDisplayBackend struct {
	Monitors []MonitorInfo
}

// NewFakeDisplayBackend returns a backend with n synthetic monitors named
// FAKE-DISPLAY1..N, the first marked primary.
func NewFakeDisplayBackend(n int, width, height int) *FakeDisplayBackend {
	monitors := make([]MonitorInfo, n)
	for i := range monitors {
		monitors[i] = MonitorInfo{
			Name:         fmt.Sprintf("FAKE-DISPLAY%d", i+1),
			Width:        width,
			Height:       height,
			AdapterIndex: 0,
			OutputIndex:  uint32(i),
			Primary:      i == 0,
		}
	}
	return &FakeDisplayBackend{Monitors: monitors}
}

func (b *FakeDisplayBackend) EnumerateMonitors() ([]MonitorInfo, error) {
	if len(b.Monitors) == 0 {
		return nil, ErrNoMonitors
	}
	out := make([]MonitorInfo, len(b.Monitors))
	copy(out, b.Monitors)
	return out, nil
}

func (b *FakeDisplayBackend) OpenDisplay(info MonitorInfo) (Display, error) {
	return &FakeDisplay{info: info}, nil
}

// FakeDisplay produces a deterministic sequence of solid-color RGBA frames.
type FakeDisplay struct {
	mu     sync.Mutex
	info   MonitorInfo
	shade  byte
	closed bool
	// Frozen, when true, makes every capture return the same shade —
	// used to exercise the recorder's dedup path.
	Frozen bool
}

func (d *FakeDisplay) CaptureFrame(ctx context.Context, timeout time.Duration) (*CapturedFrame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceLost
	}

	shade := d.shade
	if !d.Frozen {
		d.shade++
	}

	data := make([]byte, d.info.Width*d.info.Height*4)
	for i := 0; i < len(data); i += 4 {
		data[i] = shade
		data[i+1] = shade
		data[i+2] = shade
		data[i+3] = 255
	}

	return &CapturedFrame{
		Data:      data,
		Width:     d.info.Width,
		Height:    d.info.Height,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (d *FakeDisplay) Dimensions() (int, int) {
	return d.info.Width, d.info.Height
}

func (d *FakeDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// FakeAudioBackend generates a deterministic sine-wave tone in place of a
// real WASAPI endpoint.
type FakeAudioBackend struct {
	Devices []AudioDeviceInfo
}

// NewFakeAudioBackend returns a backend with one default input device.
func NewFakeAudioBackend() *FakeAudioBackend {
	return &FakeAudioBackend{
		Devices: []AudioDeviceInfo{
			{ID: "fake-mic", Name: "Fake Microphone", IsInput: true, IsDefault: true, SampleRate: 48000, Channels: 2, BitsPerSample: 32},
		},
	}
}

func (b *FakeAudioBackend) EnumerateDevices() ([]AudioDeviceInfo, error) {
	out := make([]AudioDeviceInfo, len(b.Devices))
	copy(out, b.Devices)
	return out, nil
}

func (b *FakeAudioBackend) OpenAudio(deviceID string, loopback bool) (Audio, error) {
	for _, d := range b.Devices {
		if deviceID == "" || d.ID == deviceID {
			return &FakeAudio{device: d}, nil
		}
	}
	return nil, ErrDeviceNotFound
}

// FakeAudio emits a 440 Hz tone in bursts of burstFrames samples per
// channel until stopped.
type FakeAudio struct {
	device      AudioDeviceInfo
	mu          sync.Mutex
	cancel      context.CancelFunc
	burstFrames int
	phase       float64
}

const fakeAudioBurstFrames = 480 // 10ms at 48kHz

func (a *FakeAudio) Start(ctx context.Context) (<-chan AudioSamples, error) {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return nil, fmt.Errorf("capture: fake audio already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	burst := a.burstFrames
	if burst == 0 {
		burst = fakeAudioBurstFrames
	}
	a.mu.Unlock()

	out := make(chan AudioSamples, 4)
	go func() {
		defer close(out)
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				samples := a.nextBurst(burst)
				select {
				case out <- samples:
				case <-runCtx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (a *FakeAudio) nextBurst(frames int) AudioSamples {
	a.mu.Lock()
	defer a.mu.Unlock()

	const freq = 440.0
	step := 2 * math.Pi * freq / float64(a.device.SampleRate)
	data := make([]float32, frames*int(a.device.Channels))
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(a.phase))
		a.phase += step
		for c := 0; c < int(a.device.Channels); c++ {
			data[i*int(a.device.Channels)+c] = v
		}
	}
	return AudioSamples{
		Data:       data,
		SampleRate: a.device.SampleRate,
		Channels:   a.device.Channels,
		Timestamp:  time.Now().UTC(),
	}
}

func (a *FakeAudio) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *FakeAudio) DeviceName() string  { return a.device.Name }
func (a *FakeAudio) SampleRate() uint32  { return a.device.SampleRate }
func (a *FakeAudio) Channels() uint16    { return a.device.Channels }
