// Package host owns the operating-system event source: global hotkeys, the
// low-level pointer hook and the window that clipboard writes are owned by.
// Callbacks never touch capture state; they only post typed events to a Sink.
package host

import (
	"errors"

	"snapclip/src/hotkey"
	"snapclip/src/mousehook"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("host closed")

// Sink receives events from OS callbacks. Implementations must not block.
type Sink interface {
	PostHotkey(id int)
}

// Host is the OS event source.
type Host interface {
	// Start creates the OS resources. Failure is fatal for the process.
	Start() error
	Hooks() mousehook.Backend
	Hotkeys() hotkey.Backend
	// Window returns the native window handle, or 0 where none exists.
	Window() uintptr
	Close() error
}

// New returns the platform host.
func New(sink Sink) Host { return newHost(sink) }
