package asr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Session is the seam over the three ONNX graphs a Parakeet TDT model is
// made of (encoder, decoder, joiner). No ONNX Runtime Go binding appears
// anywhere in the retrieval pack, so production wires a real binding
// behind this interface; internal/asr/fake.go's FakeSession is what every
// test in this package runs against.
type Session interface {
	// Encode runs the encoder graph over a full utterance's mel frames,
	// returning one encoder output vector per (subsampled) output frame.
	Encode(ctx context.Context, mel [][]float32) (encoded [][]float32, err error)
	// Decode runs the decoder (prediction network) graph for one step.
	// state is nil on the first call of a decode loop; opaque otherwise.
	Decode(ctx context.Context, prevToken int32, state []float32) (prednet []float32, newState []float32, err error)
	// Join runs the joiner graph, producing vocabSize token logits
	// followed by the duration-head logits.
	Join(ctx context.Context, encFrame, prednet []float32) (logits []float32, err error)
	Close() error
}

// requiredModelFiles are the files a model directory must contain for the
// engine to start.
var requiredModelFiles = []string{"encoder.onnx", "decoder.onnx", "joiner.onnx", "tokens.txt"}

// Config configures an Engine.
type Config struct {
	ModelDir   string
	UseGPU     bool
	Language   string // BCP-47; empty means unset/auto
	NumThreads int
}

// DefaultConfig returns the original's defaults (GPU preferred, 4 threads)
// for a model rooted at modelDir.
func DefaultConfig(modelDir string) Config {
	return Config{ModelDir: modelDir, UseGPU: true, NumThreads: 4}
}

// TranscriptionSegment is a word-level transcript span.
type TranscriptionSegment struct {
	Start      float64
	End        float64
	Text       string
	Confidence float64
}

// TranscriptionResult is the outcome of transcribing one audio chunk.
type TranscriptionResult struct {
	Text             string
	Segments         []TranscriptionSegment
	Language         string
	ProcessingTimeMs int64
}

// Engine wraps a Session with the mel feature extraction and
// detokenization the transducer decode loop needs on either side.
type Engine struct {
	session   Session
	tokenizer *Tokenizer
	mel       *MelSpectrogram
	cfg       Config
}

// NewEngine loads tokens.txt from cfg.ModelDir and pairs it with session.
// A missing model file (encoder.onnx, decoder.onnx, joiner.onnx, or
// tokens.txt) is a recoverable, user-visible error naming the expected
// path, matching engine.rs's SttEngine::new() model-file check — but
// unlike the original's graceful degradation to a placeholder engine, this
// fails construction outright so the caller (the audio indexer) declines
// to start rather than silently emitting placeholder transcripts.
func NewEngine(cfg Config, session Session) (*Engine, error) {
	for _, name := range requiredModelFiles {
		path := filepath.Join(cfg.ModelDir, name)
		if _, err := os.Stat(path); err != nil {
			return nil, &Error{Kind: ErrModelMissing, Msg: fmt.Sprintf("expected model file at %s", path), Err: err}
		}
	}

	f, err := os.Open(filepath.Join(cfg.ModelDir, "tokens.txt"))
	if err != nil {
		return nil, &Error{Kind: ErrTokenizerLoad, Msg: "opening tokens.txt", Err: err}
	}
	defer f.Close()

	tokenizer, err := LoadTokenizer(f)
	if err != nil {
		return nil, &Error{Kind: ErrTokenizerLoad, Msg: "parsing tokens.txt", Err: err}
	}

	return &Engine{
		session:   session,
		tokenizer: tokenizer,
		mel:       NewMelSpectrogram(NumMels, true),
		cfg:       cfg,
	}, nil
}

// Close releases the underlying session.
func (e *Engine) Close() error {
	return e.session.Close()
}

// TranscribeSamples runs the full pipeline (mel extraction, encode,
// greedy transducer decode, detokenize) over mono float32 PCM already at
// SampleRate.
func (e *Engine) TranscribeSamples(ctx context.Context, samples []float32) (TranscriptionResult, error) {
	start := time.Now()

	melFrames := e.mel.Extract(samples)
	if len(melFrames) == 0 {
		return TranscriptionResult{Language: e.cfg.Language}, nil
	}

	encoded, err := e.session.Encode(ctx, melFrames)
	if err != nil {
		return TranscriptionResult{}, &Error{Kind: ErrInference, Msg: "encoder", Err: err}
	}

	tokens, timestamps, err := decodeGreedy(ctx, e.session, encoded, e.tokenizer.VocabSize(), e.tokenizer.BlankID())
	if err != nil {
		return TranscriptionResult{}, &Error{Kind: ErrInference, Msg: "decode loop", Err: err}
	}

	text := e.tokenizer.Decode(tokens)
	words := e.tokenizer.DecodeWithTimestamps(tokens, timestamps, EncoderFrameDurationSec*1000)

	segments := make([]TranscriptionSegment, len(words))
	for i, w := range words {
		segments[i] = TranscriptionSegment{Start: w.Start, End: w.End, Text: w.Word, Confidence: 1.0}
	}

	return TranscriptionResult{
		Text:             text,
		Segments:         segments,
		Language:         e.cfg.Language,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
