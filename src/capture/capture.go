package capture

import (
	"errors"
	"fmt"
	"image"
	"log"

	"snapclip/src/hotkey"
	"snapclip/src/mousehook"
	"snapclip/src/screenshot"
	"snapclip/src/session"
)

// ErrStartupFatal means the arm hotkey could not be registered.
var ErrStartupFatal = errors.New("startup failed")

// State of the orchestrator.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	default:
		return "unknown"
	}
}

// HookController is the pointer hook owner (mousehook.Controller).
type HookController interface {
	Install(onEvent func(mousehook.Event)) (mousehook.Handle, error)
	Remove(h mousehook.Handle)
}

// HotkeyRegistrar is the hotkey owner (hotkey.Registrar).
type HotkeyRegistrar interface {
	Register(b hotkey.Binding) error
	Unregister(id int)
	UnregisterAll()
}

// ClipboardWriter places an image on the clipboard (clipboard.Writer).
type ClipboardWriter interface {
	TryWrite(img image.Image) error
}

// Poster feeds events back into the control loop (eventloop.Loop).
type Poster interface {
	PostPointer(ev mousehook.Event)
	PostComplete()
}

// Options wires the orchestrator to its collaborators.
type Options struct {
	Arm       hotkey.Binding
	Cancel    hotkey.Binding
	Hooks     HookController
	Hotkeys   HotkeyRegistrar
	Grabber   screenshot.Grabber
	Clipboard ClipboardWriter
	Poster    Poster
}

// Stats counts session outcomes.
type Stats struct {
	Armed    int
	Captured int
	Canceled int
	Failed   int
}

// Orchestrator is the capture state machine. All methods must be called from
// the control loop goroutine.
type Orchestrator struct {
	opts    Options
	state   State
	session *session.Session
	hook    mousehook.Handle
	stats   Stats
	stopped bool
}

// New builds an idle orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{opts: opts}
}

// Start registers the arm hotkey.
func (o *Orchestrator) Start() error {
	if err := o.opts.Hotkeys.Register(o.opts.Arm); err != nil {
		return fmt.Errorf("%w: %v", ErrStartupFatal, err)
	}
	log.Printf("Capture ready: press %s to select a region", o.opts.Arm)
	return nil
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Stats returns session counters.
func (o *Orchestrator) Stats() Stats { return o.stats }

// Status summarizes state and counters in one line.
func (o *Orchestrator) Status() string {
	return fmt.Sprintf("state=%s armed=%d captured=%d canceled=%d failed=%d",
		o.state, o.stats.Armed, o.stats.Captured, o.stats.Canceled, o.stats.Failed)
}

// HandleHotkey reacts to a registered hotkey firing.
func (o *Orchestrator) HandleHotkey(id int) {
	if o.stopped {
		return
	}
	switch id {
	case o.opts.Arm.ID:
		o.arm()
	case o.opts.Cancel.ID:
		if o.state == Armed {
			log.Printf("Capture canceled by %s", o.opts.Cancel)
			o.stats.Canceled++
			o.disarm()
		}
	default:
		log.Printf("Capture: ignoring unknown hotkey id %d", id)
	}
}

func (o *Orchestrator) arm() {
	if o.state == Armed {
		log.Printf("Capture: already armed, ignoring %s", o.opts.Arm)
		return
	}
	s := session.New()
	h, err := o.opts.Hooks.Install(o.opts.Poster.PostPointer)
	if err != nil {
		log.Printf("Capture: cannot arm: %v", err)
		return
	}
	o.session = s
	o.hook = h
	o.state = Armed
	o.stats.Armed++
	if err := o.opts.Hotkeys.Register(o.opts.Cancel); err != nil {
		log.Printf("Capture: cancel hotkey unavailable: %v", err)
	}
	log.Printf("Capture armed: drag to select, %s cancels", o.opts.Cancel)
}

// HandlePointer applies one pointer event to the active session. When the
// release completes the selection a completion event is posted to the loop.
func (o *Orchestrator) HandlePointer(ev mousehook.Event) {
	if o.state != Armed || o.session == nil {
		return
	}
	if mousehook.Track(o.session, ev) {
		o.opts.Poster.PostComplete()
	}
}

// HandleComplete finishes the session: capture the bounds, hand the pixels to
// the clipboard and return to Idle whatever the outcome.
func (o *Orchestrator) HandleComplete() {
	if o.state != Armed || o.session == nil || !o.session.Completed() {
		return
	}
	rect, ok := o.session.Bounds()
	o.disarm()
	if !ok {
		log.Printf("Capture: selection too small, canceled")
		o.stats.Canceled++
		return
	}

	img, err := o.opts.Grabber.Grab(rect)
	if err != nil {
		log.Printf("Capture: %v", err)
		o.stats.Failed++
		return
	}
	if err := o.opts.Clipboard.TryWrite(img); err != nil {
		log.Printf("Capture: %v", err)
		o.stats.Failed++
		return
	}
	o.stats.Captured++
	log.Printf("Captured %dx%d at (%d,%d) to clipboard", rect.Width, rect.Height, rect.Left, rect.Top)
}

// disarm discards the session and releases the hook and cancel hotkey.
func (o *Orchestrator) disarm() {
	o.session = nil
	o.opts.Hooks.Remove(o.hook)
	o.hook = 0
	o.opts.Hotkeys.Unregister(o.opts.Cancel.ID)
	o.state = Idle
}

// Shutdown cancels any active session and releases every hotkey. Safe to call twice.
func (o *Orchestrator) Shutdown() {
	if o.stopped {
		return
	}
	o.stopped = true
	if o.state == Armed {
		log.Printf("Capture: exit while armed, canceling session")
		o.stats.Canceled++
		o.disarm()
	}
	o.opts.Hotkeys.UnregisterAll()
	log.Printf("Capture stopped: %s", o.Status())
}
