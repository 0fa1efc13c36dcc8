// Package indexer runs the long-lived OCR and ASR indexing tasks of
// spec.md §4.8: pull unindexed work from storage, extract raw pixel or
// audio data, run the recognition engine, and batch-insert results.
package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// extractFrame runs the out-of-process video-frame extraction spec.md
// §4.8 step 3 describes: select the frame at offset, decode it to one raw
// RGBA frame on stdout. stderr is discarded — extraction failures are
// surfaced through the exit status, not stderr text.
func extractFrame(ctx context.Context, videoPath string, offset int64, width, height int) ([]byte, error) {
	args := []string{
		"-i", videoPath,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, offset),
		"-vframes", "1",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("indexer: ffmpeg extract frame %d from %s: %w", offset, videoPath, err)
	}

	data := out.Bytes()
	want := width * height * 4
	if len(data) != want {
		return nil, fmt.Errorf("indexer: extracted %d bytes for frame %d, want %d (%dx%d rgba)",
			len(data), offset, want, width, height)
	}
	return data, nil
}

// probeDimensions falls back to an ffprobe call for legacy chunks whose
// width/height were never cached at chunk-open time.
func probeDimensions(ctx context.Context, videoPath string) (width, height int, err error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		videoPath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return 0, 0, fmt.Errorf("indexer: ffprobe %s: %w", videoPath, err)
	}

	var probe struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out.Bytes(), &probe); err != nil {
		return 0, 0, fmt.Errorf("indexer: parse ffprobe output for %s: %w", videoPath, err)
	}
	if len(probe.Streams) == 0 {
		return 0, 0, fmt.Errorf("indexer: ffprobe found no video stream in %s", videoPath)
	}
	return probe.Streams[0].Width, probe.Streams[0].Height, nil
}
