package ocr

import (
	"context"
	"errors"
)

// ErrFakeRecognition is returned by FakeBackend when Err is set, standing
// in for a platform recognition failure in tests.
var ErrFakeRecognition = errors.New("ocr: fake backend recognition failure")

// FakeBackend is a deterministic stand-in for the platform OCR service.
// Windows.Media.Ocr is a WinRT-only runtime class: unlike the WASAPI and
// GDI interfaces internal/capture talks to directly, its interface GUIDs
// are not the kind of decades-stable, widely-published constants that can
// be reproduced here with confidence, and no ecosystem Go WinRT binding
// appears anywhere in the retrieval pack. Rather than hand-roll activation
// plumbing against guessed GUIDs — code that would look real but silently
// misbehave — Backend is left as a seam, exactly as internal/asr.Session
// is for the ONNX graphs: FakeBackend is what every test in this module
// runs against.
type FakeBackend struct {
	Lines  []BackendLine
	Err    error
	Closed bool
}

// NewFakeBackend returns a backend that recognizes the same lines on
// every call.
func NewFakeBackend(lines ...BackendLine) *FakeBackend {
	return &FakeBackend{Lines: lines}
}

func (f *FakeBackend) Recognize(ctx context.Context, data []byte, width, height int, languageTag string) (BackendResult, error) {
	if f.Err != nil {
		return BackendResult{}, f.Err
	}
	out := make([]BackendLine, len(f.Lines))
	copy(out, f.Lines)
	return BackendResult{Lines: out}, nil
}

func (f *FakeBackend) Close() error {
	f.Closed = true
	return nil
}
