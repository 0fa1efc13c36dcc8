package capture

import (
	"context"
	"testing"
	"time"
)

func TestFakeDisplayBackend_EnumerateMonitors(t *testing.T) {
	b := NewFakeDisplayBackend(2, 64, 48)
	monitors, err := b.EnumerateMonitors()
	if err != nil {
		t.Fatalf("EnumerateMonitors: %v", err)
	}
	if len(monitors) != 2 {
		t.Fatalf("got %d monitors, want 2", len(monitors))
	}
	if !monitors[0].Primary || monitors[1].Primary {
		t.Errorf("expected only monitors[0] to be primary")
	}
}

func TestFakeDisplayBackend_NoMonitors(t *testing.T) {
	b := &FakeDisplayBackend{}
	if _, err := b.EnumerateMonitors(); err != ErrNoMonitors {
		t.Fatalf("got %v, want ErrNoMonitors", err)
	}
}

func TestFakeDisplay_FramesAdvanceUnlessFrozen(t *testing.T) {
	b := NewFakeDisplayBackend(1, 8, 8)
	monitors, _ := b.EnumerateMonitors()
	display, err := b.OpenDisplay(monitors[0])
	if err != nil {
		t.Fatalf("OpenDisplay: %v", err)
	}
	defer display.Close()

	ctx := context.Background()
	f1, err := display.CaptureFrame(ctx, time.Second)
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	f2, err := display.CaptureFrame(ctx, time.Second)
	if err != nil {
		t.Fatalf("CaptureFrame: %v", err)
	}
	if f1.Data[0] == f2.Data[0] {
		t.Error("expected successive fake frames to differ by default")
	}

	fd := display.(*FakeDisplay)
	fd.Frozen = true
	f3, _ := display.CaptureFrame(ctx, time.Second)
	f4, _ := display.CaptureFrame(ctx, time.Second)
	if f3.Data[0] != f4.Data[0] {
		t.Error("expected frames to be identical once frozen")
	}
}

func TestFakeDisplay_ClosedReturnsDeviceLost(t *testing.T) {
	b := NewFakeDisplayBackend(1, 4, 4)
	monitors, _ := b.EnumerateMonitors()
	display, _ := b.OpenDisplay(monitors[0])
	display.Close()

	if _, err := display.CaptureFrame(context.Background(), time.Second); err != ErrDeviceLost {
		t.Fatalf("got %v, want ErrDeviceLost", err)
	}
}

func TestFakeAudio_StreamsSamplesUntilStopped(t *testing.T) {
	backend := NewFakeAudioBackend()
	audio, err := backend.OpenAudio("", false)
	if err != nil {
		t.Fatalf("OpenAudio: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := audio.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case samples, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before any samples arrived")
		}
		if len(samples.Data) == 0 {
			t.Error("expected nonempty sample burst")
		}
		if samples.SampleRate != audio.SampleRate() {
			t.Errorf("SampleRate = %d, want %d", samples.SampleRate, audio.SampleRate())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first audio burst")
	}

	audio.Stop()
	_, stillOpen := <-ch
	// draining after Stop should eventually close, but a burst already in
	// flight may arrive first; give the goroutine a moment to finish.
	if stillOpen {
		for range ch {
		}
	}
}

func TestFakeAudioBackend_UnknownDevice(t *testing.T) {
	backend := NewFakeAudioBackend()
	if _, err := backend.OpenAudio("does-not-exist", false); err != ErrDeviceNotFound {
		t.Fatalf("got %v, want ErrDeviceNotFound", err)
	}
}
