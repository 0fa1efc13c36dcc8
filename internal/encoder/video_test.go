package encoder

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func testVideoConfig(t *testing.T) VideoConfig {
	t.Helper()
	return VideoConfig{
		OutputDir:     t.TempDir(),
		FPS:           1,
		UseHWEncoding: false,
		Quality:       23,
		ChunkDuration: 2 * time.Second,
	}
}

func TestNewVideoEncoder_CreatesOutputDir(t *testing.T) {
	cfg := testVideoConfig(t)
	if _, err := NewVideoEncoder(cfg, "monitor1"); err != nil {
		t.Fatalf("NewVideoEncoder: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "monitor1")); err != nil {
		t.Fatalf("expected device dir to exist: %v", err)
	}
}

func TestNewVideoEncoder_RejectsZeroChunkDuration(t *testing.T) {
	cfg := testVideoConfig(t)
	cfg.ChunkDuration = 0
	if _, err := NewVideoEncoder(cfg, "monitor1"); err == nil {
		t.Fatal("expected error for zero chunk duration")
	}
}

func TestVideoEncoder_ReachedDuration(t *testing.T) {
	cfg := testVideoConfig(t)
	enc, err := NewVideoEncoder(cfg, "monitor1")
	if err != nil {
		t.Fatalf("NewVideoEncoder: %v", err)
	}

	start := time.Now().UTC()
	enc.mu.Lock()
	enc.chunkStart = start
	enc.mu.Unlock()

	if enc.ReachedDuration(start.Add(time.Second)) {
		t.Error("should not have reached duration after 1s of a 2s chunk")
	}
	if !enc.ReachedDuration(start.Add(3 * time.Second)) {
		t.Error("should have reached duration after 3s of a 2s chunk")
	}
}

func TestVideoEncoder_ReachedDuration_NoChunkStarted(t *testing.T) {
	cfg := testVideoConfig(t)
	enc, _ := NewVideoEncoder(cfg, "monitor1")
	if enc.ReachedDuration(time.Now()) {
		t.Error("expected false before any frame starts a chunk")
	}
}

func TestVideoEncoder_PNGFallback_WritesFrameFiles(t *testing.T) {
	cfg := testVideoConfig(t)
	enc, err := NewVideoEncoder(cfg, "monitor1")
	if err != nil {
		t.Fatalf("NewVideoEncoder: %v", err)
	}
	if err := enc.EnablePNGFallback(); err != nil {
		t.Fatalf("EnablePNGFallback: %v", err)
	}
	defer os.RemoveAll(enc.pngDir)

	frame := make([]byte, 4*4*4) // 4x4 RGBA
	ts := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := enc.AddFrame(frame, 4, 4, ts); err != nil {
			t.Fatalf("AddFrame: %v", err)
		}
	}

	entries, err := os.ReadDir(enc.pngDir)
	if err != nil {
		t.Fatalf("reading png dir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d png files, want 3", len(entries))
	}
}

func TestVideoEncoder_FinalizeChunk_NoFramesIsError(t *testing.T) {
	cfg := testVideoConfig(t)
	enc, _ := NewVideoEncoder(cfg, "monitor1")
	if _, err := enc.FinalizeChunk(); !errors.Is(err, ErrNoFrames) {
		t.Fatalf("got %v, want ErrNoFrames", err)
	}
}

func TestIsBrokenPipe(t *testing.T) {
	if !isBrokenPipe(errors.New("write: broken pipe")) {
		t.Error("expected broken pipe message to be detected")
	}
	if isBrokenPipe(errors.New("permission denied")) {
		t.Error("unrelated error incorrectly classified as broken pipe")
	}
}

func TestStderrCollector_CapsBufferSize(t *testing.T) {
	c := newStderrCollector()
	big := make([]byte, stderrCollectorCap*2)
	for i := range big {
		big[i] = 'x'
	}
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	go func() {
		w.Write(big)
		w.Close()
	}()
	c.drain(r)
	if c.buf.Len() > stderrCollectorCap {
		t.Errorf("collector grew to %d bytes, want <= %d", c.buf.Len(), stderrCollectorCap)
	}
}

// TestVideoEncoder_PipedRoundTrip exercises the full piped ffmpeg path and
// is skipped when ffmpeg is not on PATH.
func TestVideoEncoder_PipedRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}

	cfg := testVideoConfig(t)
	enc, err := NewVideoEncoder(cfg, "monitor1")
	if err != nil {
		t.Fatalf("NewVideoEncoder: %v", err)
	}

	frame := make([]byte, 8*8*4)
	ts := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := enc.AddFrame(frame, 8, 8, ts); err != nil {
			t.Fatalf("AddFrame: %v", err)
		}
	}

	path, err := enc.FinalizeChunk()
	if err != nil {
		t.Fatalf("FinalizeChunk: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}
