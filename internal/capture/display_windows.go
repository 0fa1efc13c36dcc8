//go:build windows

package capture

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// The real backend captures via GDI BitBlt against each monitor's device
// context rather than DXGI Desktop Duplication. Desktop Duplication is a
// pure-COM interface with no flat C entry points, and hand-rolling its
// vtable layout without a way to compile-and-run against the real SDK
// risks silently wrong method offsets; BitBlt/GetDIBits are plain
// stdcall exports gdi32 has carried since Windows 2000, callable through
// the same syscall.NewLazyDLL/proc.Call idiom golang.org/x/sys/windows
// itself is built on. This costs cursor-shape and HDR fidelity DXGI would
// give us; spec.md needs neither. See DESIGN.md.

var (
	user32 = windows.NewLazySystemDLL("user32.dll")
	gdi32  = windows.NewLazySystemDLL("gdi32.dll")

	procEnumDisplayMonitors = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW     = user32.NewProc("GetMonitorInfoW")
	procCreateDCW           = gdi32.NewProc("CreateDCW")
	procDeleteDC            = gdi32.NewProc("DeleteDC")
	procCreateCompatibleDC  = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBmp = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject        = gdi32.NewProc("SelectObject")
	procDeleteObject        = gdi32.NewProc("DeleteObject")
	procBitBlt              = gdi32.NewProc("BitBlt")
	procGetDIBits           = gdi32.NewProc("GetDIBits")
)

const (
	srcCopy        = 0x00CC0020
	biRGB          = 0
	dibRGBColors   = 0
	monitorInfofEx = 0x40
)

type rect struct{ Left, Top, Right, Bottom int32 }

type monitorInfoEx struct {
	CbSize    uint32
	Monitor   rect
	WorkArea  rect
	Flags     uint32
	DeviceStr [32]uint16
}

type bitmapInfoHeader struct {
	Size          uint32
	Width, Height int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// WindowsDisplayBackend enumerates monitors via EnumDisplayMonitors and
// captures via CreateDC+BitBlt.
type WindowsDisplayBackend struct{}

func NewWindowsDisplayBackend() *WindowsDisplayBackend { return &WindowsDisplayBackend{} }

func (b *WindowsDisplayBackend) EnumerateMonitors() ([]MonitorInfo, error) {
	var monitors []MonitorInfo
	first := true

	cb := windows.NewCallback(func(hMonitor uintptr, hdc uintptr, lprc uintptr, lparam uintptr) uintptr {
		var mi monitorInfoEx
		mi.CbSize = uint32(unsafe.Sizeof(mi))
		ret, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&mi)))
		if ret == 0 {
			return 1
		}
		name := windows.UTF16ToString(mi.DeviceStr[:])
		monitors = append(monitors, MonitorInfo{
			Name:    name,
			Width:   int(mi.Monitor.Right - mi.Monitor.Left),
			Height:  int(mi.Monitor.Bottom - mi.Monitor.Top),
			Primary: mi.Flags&1 != 0,
		})
		_ = first
		return 1
	})

	ret, _, err := procEnumDisplayMonitors.Call(0, 0, cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("capture: EnumDisplayMonitors: %w", err)
	}
	if len(monitors) == 0 {
		return nil, ErrNoMonitors
	}
	for i := range monitors {
		monitors[i].AdapterIndex = 0
		monitors[i].OutputIndex = uint32(i)
	}
	return monitors, nil
}

func (b *WindowsDisplayBackend) OpenDisplay(info MonitorInfo) (Display, error) {
	namePtr, err := windows.UTF16PtrFromString(info.Name)
	if err != nil {
		return nil, fmt.Errorf("capture: monitor name: %w", err)
	}

	hdc, _, err := procCreateDCW.Call(uintptr(unsafe.Pointer(namePtr)), uintptr(unsafe.Pointer(namePtr)), 0, 0)
	if hdc == 0 {
		return nil, fmt.Errorf("capture: CreateDCW(%s): %w", info.Name, err)
	}

	memDC, _, err := procCreateCompatibleDC.Call(hdc)
	if memDC == 0 {
		procDeleteDC.Call(hdc)
		return nil, fmt.Errorf("capture: CreateCompatibleDC: %w", err)
	}

	bmp, _, err := procCreateCompatibleBmp.Call(hdc, uintptr(info.Width), uintptr(info.Height))
	if bmp == 0 {
		procDeleteDC.Call(memDC)
		procDeleteDC.Call(hdc)
		return nil, fmt.Errorf("capture: CreateCompatibleBitmap: %w", err)
	}

	return &windowsDisplay{
		info:  info,
		hdc:   hdc,
		memDC: memDC,
		bmp:   bmp,
	}, nil
}

type windowsDisplay struct {
	mu     sync.Mutex
	info   MonitorInfo
	hdc    uintptr
	memDC  uintptr
	bmp    uintptr
	closed bool
}

func (d *windowsDisplay) CaptureFrame(ctx context.Context, timeout time.Duration) (*CapturedFrame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrDeviceLost
	}

	prev, _, _ := procSelectObject.Call(d.memDC, d.bmp)
	defer procSelectObject.Call(d.memDC, prev)

	ok, _, err := procBitBlt.Call(d.memDC, 0, 0, uintptr(d.info.Width), uintptr(d.info.Height),
		d.hdc, 0, 0, srcCopy)
	if ok == 0 {
		return nil, &TransientError{Err: fmt.Errorf("BitBlt: %w", err)}
	}

	var bi bitmapInfo
	bi.Header.Size = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.Width = int32(d.info.Width)
	bi.Header.Height = -int32(d.info.Height) // negative: top-down DIB, avoids a manual row flip
	bi.Header.Planes = 1
	bi.Header.BitCount = 32
	bi.Header.Compression = biRGB

	buf := make([]byte, d.info.Width*d.info.Height*4)
	ret, _, err := procGetDIBits.Call(d.memDC, d.bmp, 0, uintptr(d.info.Height),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&bi)), dibRGBColors)
	if ret == 0 {
		return nil, fmt.Errorf("capture: GetDIBits: %w", err)
	}

	bgraToRGBA(buf)

	return &CapturedFrame{
		Data:      buf,
		Width:     d.info.Width,
		Height:    d.info.Height,
		Timestamp: time.Now().UTC(),
	}, nil
}

func bgraToRGBA(buf []byte) {
	for i := 0; i+3 < len(buf); i += 4 {
		buf[i], buf[i+2] = buf[i+2], buf[i]
	}
}

func (d *windowsDisplay) Dimensions() (int, int) { return d.info.Width, d.info.Height }

func (d *windowsDisplay) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	procDeleteObject.Call(d.bmp)
	procDeleteDC.Call(d.memDC)
	procDeleteDC.Call(d.hdc)
	return nil
}
