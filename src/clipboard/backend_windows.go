//go:build windows

package clipboard

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/lxn/win"
)

// win32Backend stores CF_DIB data through the Win32 clipboard API.
type win32Backend struct {
	owner  win.HWND
	opened bool
}

// NewSystemBackend returns the Win32 clipboard owned by the given window
// together with the DIB encoder it expects.
func NewSystemBackend(owner uintptr) (Backend, Encoder, error) {
	return &win32Backend{owner: win.HWND(owner)}, DIBEncoder{}, nil
}

func (b *win32Backend) Open() error {
	if !win.OpenClipboard(b.owner) {
		return fmt.Errorf("OpenClipboard: error %d", win.GetLastError())
	}
	b.opened = true
	return nil
}

func (b *win32Backend) Empty() error {
	if !win.EmptyClipboard() {
		return fmt.Errorf("EmptyClipboard: error %d", win.GetLastError())
	}
	return nil
}

func (b *win32Backend) Set(data []byte) error {
	if len(data) == 0 {
		return errors.New("no data")
	}
	hMem := win.GlobalAlloc(win.GMEM_MOVEABLE, uintptr(len(data)))
	if hMem == 0 {
		return fmt.Errorf("GlobalAlloc: error %d", win.GetLastError())
	}
	p := win.GlobalLock(hMem)
	if p == nil {
		win.GlobalFree(hMem)
		return fmt.Errorf("GlobalLock: error %d", win.GetLastError())
	}
	win.MoveMemory(p, unsafe.Pointer(&data[0]), uintptr(len(data)))
	win.GlobalUnlock(hMem)

	// On success the system owns hMem.
	if win.SetClipboardData(win.CF_DIB, win.HANDLE(hMem)) == 0 {
		err := win.GetLastError()
		win.GlobalFree(hMem)
		return fmt.Errorf("SetClipboardData: error %d", err)
	}
	return nil
}

func (b *win32Backend) Close() error {
	opened := b.opened
	b.opened = false
	if !win.CloseClipboard() && opened {
		return fmt.Errorf("CloseClipboard: error %d", win.GetLastError())
	}
	return nil
}
