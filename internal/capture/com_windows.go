//go:build windows

package capture

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Minimal COM plumbing for the WASAPI calls audio_windows.go makes.
// golang.org/x/sys/windows ships CoInitializeEx/CoCreateInstance/CoTaskMemFree
// directly; everything past that (interface vtable dispatch) is hand-rolled
// here since no ecosystem WASAPI binding appears in the retrieval pack.
// Vtable slot numbers are fixed by COM's binary-compatibility contract and
// documented in the Windows SDK's mmdeviceapi.h/audioclient.h; IUnknown's
// three methods always occupy slots 0-2 in every interface derived from it.

// comObject is any pointer-to-vtable-pointer COM interface handle.
type comObject uintptr

func (o comObject) vtbl() *[64]uintptr {
	return (*[64]uintptr)(unsafe.Pointer(*(*uintptr)(unsafe.Pointer(o))))
}

func (o comObject) call(slot int, args ...uintptr) (uintptr, uintptr, syscall.Errno) {
	fn := o.vtbl()[slot]
	full := append([]uintptr{uintptr(o)}, args...)
	return syscall.SyscallN(fn, full...)
}

func (o comObject) Release() {
	if o != 0 {
		o.call(2)
	}
}

// GUIDs from mmdeviceapi.h / audioclient.h. Stable across Windows versions
// since these interfaces shipped with Vista's WASAPI.
var (
	clsidMMDeviceEnumerator = windows.GUID{Data1: 0xBCDE0395, Data2: 0xE52F, Data3: 0x467C,
		Data4: [8]byte{0x8E, 0x3D, 0xC4, 0x57, 0x92, 0x91, 0x69, 0x2E}}
	iidIMMDeviceEnumerator = windows.GUID{Data1: 0xA95664D2, Data2: 0x9614, Data3: 0x4F35,
		Data4: [8]byte{0xA7, 0x46, 0xDE, 0x8D, 0xB6, 0x36, 0x17, 0xE6}}
	iidIAudioClient = windows.GUID{Data1: 0x1CB9AD4C, Data2: 0xDBFA, Data3: 0x4c32,
		Data4: [8]byte{0xB1, 0x78, 0xC2, 0xF5, 0x68, 0xA7, 0x03, 0xB2}}
	iidIAudioCaptureClient = windows.GUID{Data1: 0xC8ADBD64, Data2: 0xE71E, Data3: 0x48a0,
		Data4: [8]byte{0xA4, 0xDE, 0x18, 0x5C, 0x39, 0x5C, 0xD3, 0x17}}
)

const (
	eRender  = 0
	eCapture = 1

	eConsole = 0

	audclntShareModeShared        = 0
	audclntStreamflagsLoopback    = 0x00020000
	audclntStreamflagsEventCbk    = 0x00040000
	audclntBufferDurationDefault  = int64(10_000_000) // 1s in 100ns units, generous default buffer

	// IMMDeviceEnumerator vtable slots.
	slotGetDefaultAudioEndpoint = 4

	// IMMDevice vtable slots.
	slotActivate = 3

	// IAudioClient vtable slots.
	slotInitialize      = 3
	slotGetBufferSize   = 4
	slotGetCurrentPadding = 6
	slotGetMixFormat    = 8
	slotStart           = 10
	slotStop            = 11
	slotGetService      = 14

	// IAudioCaptureClient vtable slots.
	slotGetBuffer     = 3
	slotReleaseBuffer = 4
)

func createDeviceEnumerator() (comObject, error) {
	var obj uintptr
	err := windows.CoCreateInstance(&clsidMMDeviceEnumerator, nil, windows.CLSCTX_ALL,
		&iidIMMDeviceEnumerator, (*unsafe.Pointer)(unsafe.Pointer(&obj)))
	if err != nil {
		return 0, fmt.Errorf("CoCreateInstance(MMDeviceEnumerator): %w", err)
	}
	return comObject(obj), nil
}

func getDefaultEndpoint(enumerator comObject, dataFlow uintptr) (comObject, error) {
	var device uintptr
	_, _, errno := enumerator.call(slotGetDefaultAudioEndpoint, dataFlow, eConsole, uintptr(unsafe.Pointer(&device)))
	if device == 0 {
		return 0, fmt.Errorf("GetDefaultAudioEndpoint: %w", errno)
	}
	return comObject(device), nil
}

func activateAudioClient(device comObject) (comObject, error) {
	var client uintptr
	_, _, errno := device.call(slotActivate, uintptr(unsafe.Pointer(&iidIAudioClient)), uintptr(windows.CLSCTX_ALL), 0,
		uintptr(unsafe.Pointer(&client)))
	if client == 0 {
		return 0, fmt.Errorf("IMMDevice.Activate: %w", errno)
	}
	return comObject(client), nil
}

func getMixFormat(client comObject) (*waveFormatEx, error) {
	var ptr uintptr
	_, _, errno := client.call(slotGetMixFormat, uintptr(unsafe.Pointer(&ptr)))
	if ptr == 0 {
		return nil, fmt.Errorf("IAudioClient.GetMixFormat: %w", errno)
	}
	format := (*waveFormatEx)(unsafe.Pointer(ptr))
	out := *format
	windows.CoTaskMemFree(unsafe.Pointer(ptr))
	return &out, nil
}
