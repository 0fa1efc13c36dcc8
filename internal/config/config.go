// Package config holds the fields the capture-to-index pipeline consumes.
//
// Loading a Config from flags, environment variables, or a file is explicitly
// out of scope for this module (see spec.md §1) — callers build one directly,
// start from Default(), or pass a decoded map to FromMap, which overlays the
// keys it knows onto Default(). No function here fills in the zero fields of
// an existing Config.
package config

import (
	"os"
	"path/filepath"
)

// Config is the set of fields the recorder, encoder, indexer and search
// layers read. Any other field an external loader produces is simply not
// represented here and is ignored.
type Config struct {
	DataDir                string
	FPS                    float64
	UseHWEncoding          bool
	ChunkDurationSecs      uint64
	AudioChunkDurationSecs uint64
	OcrFPS                 uint32
	OcrLanguage            string
	DedupThreshold         uint32
}

// Default returns the configuration spec.md §6 specifies as defaults.
func Default() Config {
	return Config{
		DataDir:                defaultDataDir(),
		FPS:                    1,
		UseHWEncoding:          true,
		ChunkDurationSecs:      300,
		AudioChunkDurationSecs: 30,
		OcrFPS:                 10,
		OcrLanguage:            "en-US",
		DedupThreshold:         5,
	}
}

func defaultDataDir() string {
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		return filepath.Join(local, "Memoire")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "Memoire")
	}
	return filepath.Join(home, "AppData", "Local", "Memoire")
}

// FromMap overlays known keys from m onto Default(), silently ignoring
// anything it doesn't recognize — the "any unknown field is ignored"
// contract from spec.md §6.
func FromMap(m map[string]any) Config {
	c := Default()
	if v, ok := m["data_dir"].(string); ok && v != "" {
		c.DataDir = v
	}
	if v, ok := asFloat(m["fps"]); ok {
		c.FPS = v
	}
	if v, ok := m["use_hw_encoding"].(bool); ok {
		c.UseHWEncoding = v
	}
	if v, ok := asUint(m["chunk_duration_secs"]); ok {
		c.ChunkDurationSecs = v
	}
	if v, ok := asUint(m["audio_chunk_duration_secs"]); ok {
		c.AudioChunkDurationSecs = v
	}
	if v, ok := asUint(m["ocr_fps"]); ok {
		c.OcrFPS = uint32(v)
	}
	if v, ok := m["ocr_language"].(string); ok && v != "" {
		c.OcrLanguage = v
	}
	if v, ok := asUint(m["dedup_threshold"]); ok {
		c.DedupThreshold = uint32(v)
	}
	return c
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asUint(v any) (uint64, bool) {
	f, ok := asFloat(v)
	if !ok || f < 0 {
		return 0, false
	}
	return uint64(f), true
}

// Validate rejects configuration values that would make the pipeline
// meaningless, per spec.md §6 ("fps: rational >= 0.1").
func (c Config) Validate() error {
	if c.FPS < 0.1 {
		return errFPSTooLow
	}
	if c.DataDir == "" {
		return errNoDataDir
	}
	return nil
}
