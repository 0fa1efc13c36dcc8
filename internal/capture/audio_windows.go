//go:build windows

package capture

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// The real audio backend talks WASAPI directly through the hand-rolled COM
// vtable helpers in com_windows.go, the same approach
// original_source/src/memoire-capture/src/audio.rs takes via the `wasapi`
// crate: an input endpoint uses the event-driven shared streaming model,
// a loopback (system-output) endpoint uses polling, because the two flags
// are mutually exclusive at the OS layer. No ecosystem Go WASAPI binding
// appears in the retrieval pack, so this is written directly against
// mmdeviceapi.h/audioclient.h's documented, ABI-stable vtable layout.

type waveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	Size           uint16
}

// WindowsAudioBackend opens WASAPI capture (microphone) or loopback
// (system audio) endpoints.
type WindowsAudioBackend struct{}

func NewWindowsAudioBackend() *WindowsAudioBackend { return &WindowsAudioBackend{} }

func (b *WindowsAudioBackend) EnumerateDevices() ([]AudioDeviceInfo, error) {
	if err := windows.CoInitializeEx(0, windows.COINIT_MULTITHREADED); err != nil && err != windows.RPC_E_CHANGED_MODE {
		return nil, fmt.Errorf("capture: CoInitializeEx: %w", err)
	}
	defer windows.CoUninitialize()

	enumerator, err := createDeviceEnumerator()
	if err != nil {
		return nil, err
	}
	defer enumerator.Release()

	var out []AudioDeviceInfo
	for _, flow := range []struct {
		dataFlow uintptr
		isInput  bool
		label    string
	}{{eCapture, true, "default-input"}, {eRender, false, "default-loopback"}} {
		device, err := getDefaultEndpoint(enumerator, flow.dataFlow)
		if err != nil {
			continue // this endpoint direction may not exist on this machine
		}
		client, err := activateAudioClient(device)
		if err != nil {
			device.Release()
			continue
		}
		format, err := getMixFormat(client)
		client.Release()
		device.Release()
		if err != nil {
			continue
		}
		out = append(out, AudioDeviceInfo{
			ID:            flow.label,
			Name:          flow.label,
			IsInput:       flow.isInput,
			IsDefault:     true,
			SampleRate:    format.SamplesPerSec,
			Channels:      format.Channels,
			BitsPerSample: format.BitsPerSample,
		})
	}
	return out, nil
}

func (b *WindowsAudioBackend) OpenAudio(deviceID string, loopback bool) (Audio, error) {
	return &windowsAudio{loopback: loopback}, nil
}

type windowsAudio struct {
	mu         sync.Mutex
	loopback   bool
	sampleRate uint32
	channels   uint16
	name       string
	cancel     context.CancelFunc
}

func (a *windowsAudio) Start(ctx context.Context) (<-chan AudioSamples, error) {
	a.mu.Lock()
	if a.cancel != nil {
		a.mu.Unlock()
		return nil, fmt.Errorf("capture: audio already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	ready := make(chan error, 1)
	out := make(chan AudioSamples, 4)

	go a.captureLoop(runCtx, ready, out)

	if err := <-ready; err != nil {
		return nil, err
	}
	return out, nil
}

// captureLoop owns COM initialization and the WASAPI session for its
// entire lifetime: COM apartments and audio clients are thread-affine, so
// everything from CoInitializeEx to IAudioClient.Stop happens on this one
// goroutine, mirroring audio.rs::capture_loop's dedicated OS thread.
func (a *windowsAudio) captureLoop(ctx context.Context, ready chan<- error, out chan<- AudioSamples) {
	defer close(out)

	if err := windows.CoInitializeEx(0, windows.COINIT_MULTITHREADED); err != nil && err != windows.RPC_E_CHANGED_MODE {
		ready <- fmt.Errorf("capture: CoInitializeEx: %w", err)
		return
	}
	defer windows.CoUninitialize()

	enumerator, err := createDeviceEnumerator()
	if err != nil {
		ready <- err
		return
	}
	defer enumerator.Release()

	dataFlow := uintptr(eCapture)
	if a.loopback {
		dataFlow = eRender
	}
	device, err := getDefaultEndpoint(enumerator, dataFlow)
	if err != nil {
		ready <- err
		return
	}
	defer device.Release()

	client, err := activateAudioClient(device)
	if err != nil {
		ready <- err
		return
	}
	defer client.Release()

	format, err := getMixFormat(client)
	if err != nil {
		ready <- err
		return
	}
	a.sampleRate = format.SamplesPerSec
	a.channels = format.Channels
	if a.loopback {
		a.name = "loopback"
	} else {
		a.name = "microphone"
	}

	streamFlags := uintptr(0)
	if a.loopback {
		streamFlags = audclntStreamflagsLoopback
	} else {
		streamFlags = audclntStreamflagsEventCbk
	}

	_, _, errno := client.call(slotInitialize, audclntShareModeShared, streamFlags,
		uintptr(audclntBufferDurationDefault), 0, uintptr(unsafe.Pointer(format)), 0)
	if errno != 0 {
		ready <- fmt.Errorf("capture: IAudioClient.Initialize: %w", errno)
		return
	}

	var captureClientPtr uintptr
	_, _, errno = client.call(slotGetService, uintptr(unsafe.Pointer(&iidIAudioCaptureClient)),
		uintptr(unsafe.Pointer(&captureClientPtr)))
	if captureClientPtr == 0 {
		ready <- fmt.Errorf("capture: IAudioClient.GetService(IAudioCaptureClient): %w", errno)
		return
	}
	captureClient := comObject(captureClientPtr)
	defer captureClient.Release()

	if _, _, errno := client.call(slotStart); errno != 0 {
		ready <- fmt.Errorf("capture: IAudioClient.Start: %w", errno)
		return
	}
	defer client.call(slotStop)

	ready <- nil

	pollInterval := 10 * time.Millisecond
	if a.loopback {
		pollInterval = 20 * time.Millisecond // spec: loopback is polling-mode, coarser cadence is fine
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	blockAlign := int(a.channels) * int(format.BitsPerSample) / 8

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				var dataPtr uintptr
				var numFrames uint32
				var flags uint32
				_, _, errno := captureClient.call(slotGetBuffer,
					uintptr(unsafe.Pointer(&dataPtr)), uintptr(unsafe.Pointer(&numFrames)),
					uintptr(unsafe.Pointer(&flags)), 0, 0)
				if numFrames == 0 {
					break
				}
				if errno == 0 && dataPtr != 0 {
					raw := unsafe.Slice((*byte)(unsafe.Pointer(dataPtr)), int(numFrames)*blockAlign)
					samples := bytesToF32(raw)
					select {
					case out <- AudioSamples{Data: samples, SampleRate: a.sampleRate, Channels: a.channels, Timestamp: time.Now().UTC()}:
					case <-ctx.Done():
						captureClient.call(slotReleaseBuffer, uintptr(numFrames))
						return
					}
				}
				captureClient.call(slotReleaseBuffer, uintptr(numFrames))
			}
		}
	}
}

func bytesToF32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		out[i] = *(*float32)(unsafe.Pointer(&bits))
	}
	return out
}

func (a *windowsAudio) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *windowsAudio) DeviceName() string { return a.name }
func (a *windowsAudio) SampleRate() uint32 { return a.sampleRate }
func (a *windowsAudio) Channels() uint16   { return a.channels }
