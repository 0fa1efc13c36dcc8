//go:build !windows

package main

import (
	"fmt"

	"memoire/internal/capture"
)

// newBackends has no real implementation outside Windows: WASAPI and GDI
// are Windows-only APIs, and internal/capture.Fake* is a test double, not
// a production capture path. The recorder binary declines to start rather
// than silently capturing nothing.
func newBackends() (capture.DisplayBackend, capture.AudioBackend, error) {
	return nil, nil, fmt.Errorf("cmd/memoire-recorder: screen/audio capture is only implemented for windows")
}
