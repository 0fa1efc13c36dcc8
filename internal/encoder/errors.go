package encoder

import "errors"

// ErrBrokenPipe is returned by AddFrame when the transcoder's stdin pipe
// has gone away (the child exited or its pipe buffer was never drained in
// time). The caller must finalize or discard the chunk; see VideoEncoder's
// EnablePNGFallback for the spec-mandated recovery path.
var ErrBrokenPipe = errors.New("encoder: broken pipe to transcoder")

// ErrNoFrames is returned by FinalizeChunk when no frames were ever
// appended to the current chunk.
var ErrNoFrames = errors.New("encoder: no frames in current chunk")
