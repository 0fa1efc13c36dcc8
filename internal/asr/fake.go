package asr

import "context"

// FakeSession is a deterministic stand-in for a real ONNX Parakeet TDT
// session. See Session's doc comment for why no real ONNX Runtime Go
// binding is wired here: Encode is an identity passthrough over the mel
// frames it's given, and Decode/Join replay a scripted sequence of
// (token, duration) joiner decisions, one per Join call, so tests can
// drive decodeGreedy through known transducer outcomes without a real
// neural forward pass.
type FakeSession struct {
	VocabSize    int
	BlankID      int32
	NumDurations int
	Steps        []FakeStep
	Closed       bool

	calls int
}

// FakeStep is one scripted joiner decision: emit Token (BlankID for no
// emission) and advance by Duration encoder frames.
type FakeStep struct {
	Token    int32
	Duration int
}

// NewFakeSession returns a session that emits steps in order, one per
// Join call, then emits BlankID with duration 1 for any call beyond the
// scripted sequence (so the decode loop always terminates).
func NewFakeSession(vocabSize int, blankID int32, numDurations int, steps ...FakeStep) *FakeSession {
	return &FakeSession{VocabSize: vocabSize, BlankID: blankID, NumDurations: numDurations, Steps: steps}
}

func (f *FakeSession) Encode(ctx context.Context, mel [][]float32) ([][]float32, error) {
	out := make([][]float32, len(mel))
	copy(out, mel)
	return out, nil
}

func (f *FakeSession) Decode(ctx context.Context, prevToken int32, state []float32) ([]float32, []float32, error) {
	newState := make([]float32, len(state)+1)
	copy(newState, state)
	newState[len(state)] = float32(prevToken)
	return []float32{float32(prevToken)}, newState, nil
}

func (f *FakeSession) Join(ctx context.Context, encFrame, prednet []float32) ([]float32, error) {
	step := FakeStep{Token: f.BlankID, Duration: 1}
	if f.calls < len(f.Steps) {
		step = f.Steps[f.calls]
	}
	f.calls++

	logits := make([]float32, f.VocabSize+f.NumDurations)
	logits[step.Token] = 10
	if f.NumDurations > 0 {
		logits[f.VocabSize+step.Duration] = 10
	}
	return logits, nil
}

func (f *FakeSession) Close() error {
	f.Closed = true
	return nil
}
