//go:build windows

package host

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"snapclip/src/hotkey"
	"snapclip/src/mousehook"
	"snapclip/src/session"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procRegisterHotKey      = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey    = user32.NewProc("UnregisterHotKey")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
)

const (
	whMouseLL   = 14
	hcAction    = 0
	wmHotkey    = 0x0312
	wmCall      = win.WM_APP + 1
	modNoRepeat = 0x4000

	errHotkeyAlreadyRegistered syscall.Errno = 1409
	errHotkeyNotRegistered     syscall.Errno = 1419

	hostClassName = "SnapClipHost"
)

// HWND_MESSAGE: the window only receives messages.
var hwndMessage = ^win.HWND(2)

type msllHookStruct struct {
	Pt          win.POINT
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// Callbacks are created once; every NewCallback allocation is permanent.
var (
	mouseProcCallback = syscall.NewCallback(lowLevelMouseProc)
	wndProcCallback   = syscall.NewCallback(hostWndProc)
)

// current is the running host. Only the host thread reads it after Start.
var current *winHost

type winHost struct {
	sink Sink

	hwnd    win.HWND
	calls   chan func()
	done    chan struct{}
	started atomic.Bool
	closeMu sync.Mutex

	// Host-thread only.
	hook    uintptr
	onMouse func(mousehook.Event)
}

func newHost(sink Sink) Host {
	return &winHost{sink: sink, calls: make(chan func(), 16), done: make(chan struct{})}
}

func (h *winHost) Start() error {
	if current != nil {
		return errors.New("host already started")
	}
	current = h
	ready := make(chan error, 1)
	go h.run(ready)
	if err := <-ready; err != nil {
		current = nil
		return err
	}
	h.started.Store(true)
	return nil
}

func (h *winHost) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	hInst := win.GetModuleHandle(nil)
	className := syscall.StringToUTF16Ptr(hostClassName)
	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   wndProcCallback,
		HInstance:     hInst,
		LpszClassName: className,
	}
	if win.RegisterClassEx(&wc) == 0 {
		ready <- fmt.Errorf("RegisterClassEx: error %d", win.GetLastError())
		return
	}
	defer win.UnregisterClass(className)

	h.hwnd = win.CreateWindowEx(0, className, syscall.StringToUTF16Ptr("SnapClip"), 0,
		0, 0, 0, 0, hwndMessage, 0, hInst, nil)
	if h.hwnd == 0 {
		ready <- fmt.Errorf("CreateWindowEx: error %d", win.GetLastError())
		return
	}
	log.Printf("Host: message window %#x ready", uintptr(h.hwnd))
	ready <- nil

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 {
			break
		}
		if ret == -1 {
			log.Printf("Host: GetMessage failed: error %d", win.GetLastError())
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
	h.unhook()
	log.Printf("Host: message loop exited")
}

func hostWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case wmHotkey:
		if h := current; h != nil {
			h.sink.PostHotkey(int(wParam))
		}
		return 0
	case wmCall:
		if h := current; h != nil {
			h.drainCalls()
		}
		return 0
	case win.WM_CLOSE:
		win.DestroyWindow(hwnd)
		return 0
	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

func lowLevelMouseProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode == hcAction {
		if h := current; h != nil && h.onMouse != nil {
			info := (*msllHookStruct)(unsafe.Pointer(lParam))
			pos := session.Point{X: int(info.Pt.X), Y: int(info.Pt.Y)}
			switch uint32(wParam) {
			case win.WM_LBUTTONDOWN:
				h.onMouse(mousehook.Event{Kind: mousehook.Press, Pos: pos})
			case win.WM_MOUSEMOVE:
				h.onMouse(mousehook.Event{Kind: mousehook.Move, Pos: pos})
			case win.WM_LBUTTONUP:
				h.onMouse(mousehook.Event{Kind: mousehook.Release, Pos: pos})
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (h *winHost) drainCalls() {
	for {
		select {
		case fn := <-h.calls:
			fn()
		default:
			return
		}
	}
}

// onThread runs fn on the host thread and waits for it.
func (h *winHost) onThread(fn func()) error {
	if !h.started.Load() {
		return ErrClosed
	}
	finished := make(chan struct{})
	select {
	case h.calls <- func() { fn(); close(finished) }:
	case <-h.done:
		return ErrClosed
	}
	if win.PostMessage(h.hwnd, wmCall, 0, 0) == 0 {
		log.Printf("Host: PostMessage failed: error %d", win.GetLastError())
	}
	select {
	case <-finished:
		return nil
	case <-h.done:
		return ErrClosed
	}
}

func (h *winHost) unhook() {
	if h.hook == 0 {
		return
	}
	procUnhookWindowsHookEx.Call(h.hook)
	h.hook = 0
	h.onMouse = nil
}

func (h *winHost) Hooks() mousehook.Backend { return winHooks{h} }
func (h *winHost) Hotkeys() hotkey.Backend  { return winHotkeys{h} }
func (h *winHost) Window() uintptr          { return uintptr(h.hwnd) }

func (h *winHost) Close() error {
	h.closeMu.Lock()
	defer h.closeMu.Unlock()
	if !h.started.Swap(false) {
		return nil
	}
	win.PostMessage(h.hwnd, win.WM_CLOSE, 0, 0)
	<-h.done
	current = nil
	return nil
}

type winHooks struct{ h *winHost }

func (m winHooks) Install(onEvent func(mousehook.Event)) (mousehook.Handle, error) {
	var handle uintptr
	var err error
	if callErr := m.h.onThread(func() {
		m.h.onMouse = onEvent
		r, _, e := procSetWindowsHookExW.Call(whMouseLL, mouseProcCallback, uintptr(win.GetModuleHandle(nil)), 0)
		if r == 0 {
			m.h.onMouse = nil
			err = fmt.Errorf("SetWindowsHookEx: %v", e)
			return
		}
		m.h.hook = r
		handle = r
	}); callErr != nil {
		return 0, callErr
	}
	return mousehook.Handle(handle), err
}

func (m winHooks) Remove(handle mousehook.Handle) error {
	var err error
	if callErr := m.h.onThread(func() {
		if uintptr(handle) != m.h.hook {
			err = fmt.Errorf("unknown hook handle %#x", uintptr(handle))
			return
		}
		r, _, e := procUnhookWindowsHookEx.Call(uintptr(handle))
		m.h.hook = 0
		m.h.onMouse = nil
		if r == 0 {
			err = fmt.Errorf("UnhookWindowsHookEx: %v", e)
		}
	}); callErr != nil {
		return callErr
	}
	return err
}

type winHotkeys struct{ h *winHost }

func (k winHotkeys) Register(b hotkey.Binding) error {
	var err error
	if callErr := k.h.onThread(func() {
		r, _, e := procRegisterHotKey.Call(uintptr(k.h.hwnd), uintptr(b.ID),
			uintptr(uint32(b.Modifiers)|modNoRepeat), uintptr(b.Key))
		if r != 0 {
			return
		}
		if errors.Is(e, errHotkeyAlreadyRegistered) {
			err = fmt.Errorf("%w: %s", hotkey.ErrConflict, b)
			return
		}
		err = fmt.Errorf("RegisterHotKey %s: %v", b, e)
	}); callErr != nil {
		return callErr
	}
	return err
}

func (k winHotkeys) Unregister(id int) error {
	var err error
	if callErr := k.h.onThread(func() {
		r, _, e := procUnregisterHotKey.Call(uintptr(k.h.hwnd), uintptr(id))
		if r != 0 {
			return
		}
		if errors.Is(e, errHotkeyNotRegistered) {
			err = hotkey.ErrNotRegistered
			return
		}
		err = fmt.Errorf("UnregisterHotKey %d: %v", id, e)
	}); callErr != nil {
		return callErr
	}
	return err
}
