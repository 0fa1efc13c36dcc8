package asr

// This file is intentionally left as a wiring point. No ONNX Runtime Go
// binding appears anywhere in the retrieval pack (the closest,
// ollama/ollama, is an HTTP client to a chat-completion server, not an
// in-process ONNX session, and cannot host a fixed local transducer
// graph). A production deployment implements Session against
// encoder.onnx/decoder.onnx/joiner.onnx in a model directory using
// whichever ONNX Runtime binding it provides and passes that
// implementation to NewEngine; internal/asr/fake.go's FakeSession is what
// every test in this package runs against instead.
