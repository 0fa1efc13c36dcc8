package capture

import (
	"context"
	"time"
)

// Display captures successive stills from one monitor. CaptureFrame
// returns (nil, nil) when the backend timed out waiting for a new frame —
// not every poll interval produces new desktop content — and returns
// ErrDeviceLost when the endpoint must be recreated.
type Display interface {
	CaptureFrame(ctx context.Context, timeout time.Duration) (*CapturedFrame, error)
	Dimensions() (width, height int)
	Close() error
}

// DisplayBackend enumerates monitors and opens capture endpoints for them.
// The real implementation is platform-specific (display_windows.go); Fake
// is the deterministic stand-in used everywhere else, including on
// non-Windows build hosts.
type DisplayBackend interface {
	EnumerateMonitors() ([]MonitorInfo, error)
	OpenDisplay(MonitorInfo) (Display, error)
}
