package asr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewEngine_MissingModelFilesIsRecoverableError(t *testing.T) {
	dir := t.TempDir()
	_, err := NewEngine(DefaultConfig(dir), NewFakeSession(10, 9, 0))
	if err == nil {
		t.Fatal("expected an error when model files are missing")
	}
	var asrErr *Error
	if !errors.As(err, &asrErr) || asrErr.Kind != ErrModelMissing {
		t.Fatalf("got %v, want *Error{Kind: ErrModelMissing}", err)
	}
}

func writeModelDir(t *testing.T, tokens string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"encoder.onnx", "decoder.onnx", "joiner.onnx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "tokens.txt"), []byte(tokens), 0o644); err != nil {
		t.Fatalf("write tokens.txt: %v", err)
	}
	return dir
}

func TestNewEngine_LoadsTokenizerFromModelDir(t *testing.T) {
	dir := writeModelDir(t, sampleVocab)
	e, err := NewEngine(DefaultConfig(dir), NewFakeSession(7, 6, 0))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if e.tokenizer.VocabSize() != 7 {
		t.Errorf("tokenizer.VocabSize() = %d, want 7", e.tokenizer.VocabSize())
	}
}

func TestDecodeGreedy_EmitsScriptedTokensAndAdvancesByDuration(t *testing.T) {
	const vocabSize = 10
	const blankID = int32(9)

	session := NewFakeSession(vocabSize, blankID, 3,
		FakeStep{Token: 2, Duration: 1}, // frame 0: emit token 2, advance 1
		FakeStep{Token: blankID, Duration: 2}, // frame 1: blank, advance 2
		FakeStep{Token: 5, Duration: 1}, // frame 3: emit token 5, advance 1
	)

	encoded := make([][]float32, 6)
	for i := range encoded {
		encoded[i] = []float32{float32(i)}
	}

	tokens, timestamps, err := decodeGreedy(context.Background(), session, encoded, vocabSize, blankID)
	if err != nil {
		t.Fatalf("decodeGreedy: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != 2 || tokens[1] != 5 {
		t.Fatalf("tokens = %v, want [2, 5]", tokens)
	}
	if len(timestamps) != 2 || timestamps[0] != 0 || timestamps[1] != 3 {
		t.Fatalf("timestamps = %v, want [0, 3]", timestamps)
	}
}

func TestDecodeGreedy_NoDurationHeadAdvancesOneFramePerStep(t *testing.T) {
	const vocabSize = 5
	const blankID = int32(4)

	session := NewFakeSession(vocabSize, blankID, 0,
		FakeStep{Token: 1},
		FakeStep{Token: blankID},
		FakeStep{Token: 2},
	)

	encoded := make([][]float32, 4)
	for i := range encoded {
		encoded[i] = []float32{0}
	}

	tokens, timestamps, err := decodeGreedy(context.Background(), session, encoded, vocabSize, blankID)
	if err != nil {
		t.Fatalf("decodeGreedy: %v", err)
	}
	if len(tokens) != 2 || tokens[0] != 1 || tokens[1] != 2 {
		t.Fatalf("tokens = %v, want [1, 2]", tokens)
	}
	if len(timestamps) != 2 || timestamps[0] != 0 || timestamps[1] != 2 {
		t.Fatalf("timestamps = %v, want [0, 2]", timestamps)
	}
}

func TestEngine_TranscribeSamples_EndToEnd(t *testing.T) {
	dir := writeModelDir(t, sampleVocab)
	// vocabSize=7, blankID=6 from sampleVocab; token 5 is "▁the".
	session := NewFakeSession(7, 6, 0, FakeStep{Token: 5})
	e, err := NewEngine(DefaultConfig(dir), session)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	samples := make([]float32, SampleRate) // 1 second of silence, enough for several frames
	result, err := e.TranscribeSamples(context.Background(), samples)
	if err != nil {
		t.Fatalf("TranscribeSamples: %v", err)
	}
	if result.Text == "" {
		t.Error("Text is empty, want at least one decoded word")
	}
}

func TestEngine_TranscribeSamples_TooShortIsEmptyResult(t *testing.T) {
	dir := writeModelDir(t, sampleVocab)
	session := NewFakeSession(7, 6, 0)
	e, err := NewEngine(DefaultConfig(dir), session)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	result, err := e.TranscribeSamples(context.Background(), make([]float32, 10))
	if err != nil {
		t.Fatalf("TranscribeSamples: %v", err)
	}
	if result.Text != "" || len(result.Segments) != 0 {
		t.Errorf("result = %+v, want empty", result)
	}
}
