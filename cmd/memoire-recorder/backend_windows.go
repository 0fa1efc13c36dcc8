//go:build windows

package main

import "memoire/internal/capture"

// newBackends wires the real WASAPI/GDI capture backends on Windows, the
// only platform internal/capture's production implementations target.
func newBackends() (capture.DisplayBackend, capture.AudioBackend, error) {
	return capture.NewWindowsDisplayBackend(), capture.NewWindowsAudioBackend(), nil
}
