package mousehook

import (
	"errors"
	"fmt"
	"log"

	"snapclip/src/session"
)

// ErrInstallFailed is returned when the OS refuses the global pointer hook.
var ErrInstallFailed = errors.New("mouse hook install failed")

// Kind identifies a pointer event.
type Kind int

const (
	Press Kind = iota
	Move
	Release
)

func (k Kind) String() string {
	switch k {
	case Press:
		return "press"
	case Move:
		return "move"
	case Release:
		return "release"
	default:
		return "unknown"
	}
}

// Event is a typed pointer event forwarded from the OS hook to the event loop.
type Event struct {
	Kind Kind
	Pos  session.Point
}

// Handle is an opaque reference to an installed hook. Zero is the null handle.
type Handle uintptr

// Backend is the OS capability behind the controller.
// Install must deliver events to onEvent in the order the OS reports them and
// must never block the OS input chain on onEvent.
type Backend interface {
	Install(onEvent func(Event)) (Handle, error)
	Remove(h Handle) error
}

// Controller owns the single process-wide pointer hook.
type Controller struct {
	backend Backend
	handle  Handle
}

// NewController wraps a backend.
func NewController(backend Backend) *Controller {
	return &Controller{backend: backend}
}

// Install registers the listener. While a hook is already live it returns the
// existing handle without touching the backend.
func (c *Controller) Install(onEvent func(Event)) (Handle, error) {
	if c.handle != 0 {
		return c.handle, nil
	}
	h, err := c.backend.Install(onEvent)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInstallFailed, err)
	}
	if h == 0 {
		return 0, fmt.Errorf("%w: backend returned null handle", ErrInstallFailed)
	}
	c.handle = h
	log.Printf("Mouse hook installed (handle=%#x)", uintptr(h))
	return h, nil
}

// Remove uninstalls the hook. Null, stale and repeated removals are no-ops.
func (c *Controller) Remove(h Handle) {
	if h == 0 || h != c.handle {
		return
	}
	c.handle = 0
	if err := c.backend.Remove(h); err != nil {
		log.Printf("Mouse hook removal reported error: %v", err)
		return
	}
	log.Printf("Mouse hook removed")
}

// Active reports whether a hook is installed.
func (c *Controller) Active() bool { return c.handle != 0 }

// Track applies one event to the session. It returns true exactly once per
// session: on the first release that follows a press.
func Track(s *session.Session, ev Event) bool {
	if s == nil {
		return false
	}
	switch ev.Kind {
	case Press:
		s.Press(ev.Pos)
	case Move:
		s.Move(ev.Pos)
	case Release:
		return s.Release(ev.Pos)
	}
	return false
}
