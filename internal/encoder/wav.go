package encoder

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// riffHeader mirrors madpsy-ka9q_ubersdr's decoder_wav.go WAVHeader: a
// fixed 44-byte RIFF/WAVE/fmt/data layout, written with encoding/binary
// rather than a library since no WAV-writer dependency appears anywhere in
// the retrieval pack.
type riffHeader struct {
	ChunkID   [4]byte
	ChunkSize uint32
	Format    [4]byte

	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16

	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

const (
	wavBitsPerSample = 16
	wavChannels      = 1
	wavSampleRate    = 16000
)

// AudioConfig configures one AudioEncoder.
type AudioConfig struct {
	// OutputDir is the root "audio" directory; chunk files land under
	// OutputDir/<device_or_loopback>/<YYYY-MM-DD>/.
	OutputDir     string
	ChunkDuration time.Duration
}

// AudioEncoder accumulates mono 16kHz f32 samples (already folded down and
// resampled by Resampler) into WAV chunks, grounded on
// original_source/src/memoire-processing/src/audio_encoder.rs.
type AudioEncoder struct {
	cfg    AudioConfig
	device string // already sanitized

	mu         sync.Mutex
	samples    []float32
	chunkStart time.Time
	chunkIndex uint64
}

// NewAudioEncoder creates an encoder writing under cfg.OutputDir/device.
func NewAudioEncoder(cfg AudioConfig, device string) (*AudioEncoder, error) {
	if cfg.ChunkDuration <= 0 {
		return nil, fmt.Errorf("encoder: ChunkDuration must be positive")
	}
	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, device), 0o755); err != nil {
		return nil, fmt.Errorf("encoder: creating audio output dir: %w", err)
	}
	return &AudioEncoder{cfg: cfg, device: device}, nil
}

// samplesPerChunk is the number of mono 16kHz samples cfg.ChunkDuration
// represents.
func (e *AudioEncoder) samplesPerChunk() int {
	return int(e.cfg.ChunkDuration.Seconds() * float64(wavSampleRate))
}

// AddSamples appends mono 16kHz samples to the current chunk, finalizing
// and returning a path once enough samples have accumulated.
func (e *AudioEncoder) AddSamples(samples []float32, ts time.Time) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.chunkStart.IsZero() {
		e.chunkStart = ts
	}
	e.samples = append(e.samples, samples...)

	if len(e.samples) >= e.samplesPerChunk() {
		return e.finalizeLocked()
	}
	return "", nil
}

// FinalizeChunk force-finalizes the current chunk even if it is short of a
// full chunk duration, used on clean shutdown.
func (e *AudioEncoder) FinalizeChunk() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.samples) == 0 {
		return "", ErrNoFrames
	}
	return e.finalizeLocked()
}

func (e *AudioEncoder) finalizeLocked() (string, error) {
	start := e.chunkStart
	if start.IsZero() {
		start = time.Now().UTC()
	}
	dateDir := filepath.Join(e.cfg.OutputDir, e.device, start.Format("2006-01-02"))
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return "", fmt.Errorf("encoder: creating audio chunk date dir: %w", err)
	}
	outputPath := filepath.Join(dateDir,
		fmt.Sprintf("chunk_%s_%d.wav", start.Format("15-04-05"), e.chunkIndex))

	if err := writeWAV(outputPath, e.samples); err != nil {
		return "", err
	}

	e.samples = e.samples[:0]
	e.chunkStart = time.Time{}
	e.chunkIndex++
	return outputPath, nil
}

// ReadWAV reads back a mono 16-bit PCM WAV file written by writeWAV,
// returning samples as float32 in [-1, 1]. The audio indexer's entry
// point: spec.md §4.8 says the audio variant "reads WAV files directly."
func ReadWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("encoder: opening wav file: %w", err)
	}
	defer f.Close()

	var header riffHeader
	if err := binary.Read(f, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("encoder: reading wav header: %w", err)
	}
	if header.ChunkID != [4]byte{'R', 'I', 'F', 'F'} || header.Format != [4]byte{'W', 'A', 'V', 'E'} {
		return nil, fmt.Errorf("encoder: %s is not a RIFF/WAVE file", path)
	}
	if header.AudioFormat != 1 || header.BitsPerSample != wavBitsPerSample || header.NumChannels != wavChannels {
		return nil, fmt.Errorf("encoder: %s is not mono 16-bit PCM", path)
	}

	numSamples := int(header.Subchunk2Size) / (wavBitsPerSample / 8)
	samples := make([]float32, numSamples)
	for i := range samples {
		var raw int16
		if err := binary.Read(f, binary.LittleEndian, &raw); err != nil {
			return nil, fmt.Errorf("encoder: reading wav sample %d: %w", i, err)
		}
		samples[i] = float32(raw) / 32768
	}
	return samples, nil
}

// writeWAV writes mono 16-bit PCM samples at 16kHz to path.
func writeWAV(path string, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("encoder: creating wav file: %w", err)
	}
	defer f.Close()

	dataSize := uint32(len(samples) * (wavBitsPerSample / 8))
	header := riffHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   wavChannels,
		SampleRate:    wavSampleRate,
		ByteRate:      wavSampleRate * wavChannels * wavBitsPerSample / 8,
		BlockAlign:    wavChannels * wavBitsPerSample / 8,
		BitsPerSample: wavBitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}
	if err := binary.Write(f, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("encoder: writing wav header: %w", err)
	}

	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		i16 := int16(s * 32767)
		if err := binary.Write(f, binary.LittleEndian, i16); err != nil {
			return fmt.Errorf("encoder: writing wav sample: %w", err)
		}
	}
	return nil
}
