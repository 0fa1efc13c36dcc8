package capture

import "context"

// Audio streams captured samples from one device until Stop is called or
// the context passed to Start is canceled.
type Audio interface {
	Start(ctx context.Context) (<-chan AudioSamples, error)
	Stop()
	DeviceName() string
	SampleRate() uint32
	Channels() uint16
}

// AudioBackend enumerates devices and opens a capture endpoint for one of
// them. An empty deviceID means "use the OS default device".
type AudioBackend interface {
	EnumerateDevices() ([]AudioDeviceInfo, error)
	OpenAudio(deviceID string, loopback bool) (Audio, error)
}
