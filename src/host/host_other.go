//go:build !windows

package host

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	hook "github.com/robotn/gohook"

	"snapclip/src/hotkey"
	"snapclip/src/mousehook"
	"snapclip/src/session"
)

const leftButton = 1

// Right-hand variants reported by gohook for each modifier.
var modifierKeys = []struct {
	mod   hotkey.Modifier
	names []string
}{
	{hotkey.ModCtrl, []string{"ctrl", "rctrl"}},
	{hotkey.ModAlt, []string{"alt", "ralt"}},
	{hotkey.ModShift, []string{"shift", "rshift"}},
	{hotkey.ModWin, []string{"cmd", "rcmd"}},
}

// gohook names differ from ours for a few keys.
var gohookNames = map[string]string{
	"printscreen": "print",
}

// keyGroup is satisfied when any of its codes is held.
type keyGroup []uint16

type hookBinding struct {
	binding hotkey.Binding
	groups  []keyGroup
	fired   bool
}

type gohookHost struct {
	sink Sink

	mu       sync.Mutex
	bindings map[int]*hookBinding
	down     map[uint16]bool
	onMouse  func(mousehook.Event)
	handle   mousehook.Handle
	events   chan hook.Event
	done     chan struct{}
}

func newHost(sink Sink) Host {
	return &gohookHost{
		sink:     sink,
		bindings: make(map[int]*hookBinding),
		down:     make(map[uint16]bool),
	}
}

func (h *gohookHost) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.events != nil {
		return nil
	}
	events := hook.Start()
	if events == nil {
		return errors.New("gohook: event stream unavailable")
	}
	h.events = events
	h.done = make(chan struct{})
	go h.pump(events, h.done)
	log.Printf("Host: gohook event stream started")
	return nil
}

func (h *gohookHost) pump(events chan hook.Event, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in gohook pump: %v", r)
		}
	}()
	for ev := range events {
		h.dispatch(ev)
	}
}

func (h *gohookHost) dispatch(ev hook.Event) {
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		for _, id := range h.keyDown(ev.Keycode) {
			h.sink.PostHotkey(id)
		}
	case hook.KeyUp:
		h.keyUp(ev.Keycode)
	case hook.MouseHold:
		// gohook reports the button going down as MouseHold.
		if ev.Button == leftButton {
			h.mouse(mousehook.Press, ev)
		}
	case hook.MouseDown:
		// ...and the button coming back up as MouseDown.
		if ev.Button == leftButton {
			h.mouse(mousehook.Release, ev)
		}
	case hook.MouseMove, hook.MouseDrag:
		h.mouse(mousehook.Move, ev)
	}
}

// keyDown records the key and returns bindings that just became complete.
// A binding fires once until one of its keys is released.
func (h *gohookHost) keyDown(code uint16) []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.down[code] = true
	var fired []int
	for id, b := range h.bindings {
		if b.fired || !h.satisfied(b) {
			continue
		}
		b.fired = true
		fired = append(fired, id)
	}
	return fired
}

func (h *gohookHost) keyUp(code uint16) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.down, code)
	for _, b := range h.bindings {
		if b.fired && !h.satisfied(b) {
			b.fired = false
		}
	}
}

func (h *gohookHost) satisfied(b *hookBinding) bool {
	for _, g := range b.groups {
		held := false
		for _, code := range g {
			if h.down[code] {
				held = true
				break
			}
		}
		if !held {
			return false
		}
	}
	return true
}

func (h *gohookHost) mouse(kind mousehook.Kind, ev hook.Event) {
	h.mu.Lock()
	cb := h.onMouse
	h.mu.Unlock()
	if cb != nil {
		cb(mousehook.Event{Kind: kind, Pos: session.Point{X: int(ev.X), Y: int(ev.Y)}})
	}
}

func (h *gohookHost) Hooks() mousehook.Backend { return gohookMouse{h} }
func (h *gohookHost) Hotkeys() hotkey.Backend  { return gohookKeys{h} }
func (h *gohookHost) Window() uintptr          { return 0 }

func (h *gohookHost) Close() error {
	h.mu.Lock()
	events, done := h.events, h.done
	h.events = nil
	h.onMouse = nil
	h.mu.Unlock()
	if events == nil {
		return nil
	}
	hook.End()
	select {
	case <-done:
		log.Printf("Host: gohook event stream stopped")
	case <-time.After(2 * time.Second):
		log.Printf("Host: gohook event stream did not stop in time")
	}
	return nil
}

type gohookMouse struct{ h *gohookHost }

func (m gohookMouse) Install(onEvent func(mousehook.Event)) (mousehook.Handle, error) {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	if m.h.events == nil {
		return 0, ErrClosed
	}
	if m.h.onMouse != nil {
		return 0, errors.New("pointer listener already installed")
	}
	m.h.onMouse = onEvent
	m.h.handle++
	return m.h.handle, nil
}

func (m gohookMouse) Remove(handle mousehook.Handle) error {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	if handle != m.h.handle || m.h.onMouse == nil {
		return fmt.Errorf("unknown hook handle %#x", uintptr(handle))
	}
	m.h.onMouse = nil
	return nil
}

type gohookKeys struct{ h *gohookHost }

func (k gohookKeys) Register(b hotkey.Binding) error {
	groups, err := keyGroups(b)
	if err != nil {
		return err
	}
	k.h.mu.Lock()
	defer k.h.mu.Unlock()
	for _, other := range k.h.bindings {
		if other.binding.Modifiers == b.Modifiers && other.binding.KeyName == b.KeyName {
			return fmt.Errorf("%w: %s", hotkey.ErrConflict, b)
		}
	}
	// Keys already held do not fire the binding until pressed again.
	hb := &hookBinding{binding: b, groups: groups}
	hb.fired = k.h.satisfied(hb)
	k.h.bindings[b.ID] = hb
	return nil
}

func (k gohookKeys) Unregister(id int) error {
	k.h.mu.Lock()
	defer k.h.mu.Unlock()
	if _, ok := k.h.bindings[id]; !ok {
		return hotkey.ErrNotRegistered
	}
	delete(k.h.bindings, id)
	return nil
}

func keyGroups(b hotkey.Binding) ([]keyGroup, error) {
	var groups []keyGroup
	for _, m := range modifierKeys {
		if b.Modifiers&m.mod == 0 {
			continue
		}
		var g keyGroup
		for _, name := range m.names {
			if code, ok := hook.Keycode[name]; ok {
				g = append(g, code)
			}
		}
		if len(g) == 0 {
			return nil, fmt.Errorf("%w: no keycode for modifier in %s", hotkey.ErrInvalid, b)
		}
		groups = append(groups, g)
	}
	name := b.KeyName
	if alias, ok := gohookNames[name]; ok {
		name = alias
	}
	code, ok := hook.Keycode[name]
	if !ok {
		return nil, fmt.Errorf("%w: no keycode for %q", hotkey.ErrInvalid, b.KeyName)
	}
	return append(groups, keyGroup{code}), nil
}
