//go:build !windows

package host

import (
	"errors"
	"sync"
	"testing"

	hook "github.com/robotn/gohook"

	"snapclip/src/hotkey"
	"snapclip/src/mousehook"
)

type recordingSink struct {
	mu  sync.Mutex
	ids []int
}

func (s *recordingSink) PostHotkey(id int) {
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()
}

// newTestHost skips the real event stream; events are fed through dispatch.
func newTestHost(sink Sink) *gohookHost {
	h := newHost(sink).(*gohookHost)
	h.events = make(chan hook.Event)
	return h
}

func key(kind uint8, name string) hook.Event {
	return hook.Event{Kind: kind, Keycode: hook.Keycode[name]}
}

func TestHotkeyFiresOncePerPress(t *testing.T) {
	sink := &recordingSink{}
	h := newTestHost(sink)
	b, _ := hotkey.ParseBinding(1, "Alt+Shift+A")
	if err := h.Hotkeys().Register(b); err != nil {
		t.Fatalf("Register: %v", err)
	}

	h.dispatch(key(hook.KeyDown, "alt"))
	h.dispatch(key(hook.KeyDown, "rshift"))
	h.dispatch(key(hook.KeyDown, "a"))
	h.dispatch(key(hook.KeyHold, "a"))
	h.dispatch(key(hook.KeyHold, "a"))
	if len(sink.ids) != 1 || sink.ids[0] != 1 {
		t.Fatalf("expected a single hotkey 1, got %v", sink.ids)
	}

	h.dispatch(key(hook.KeyUp, "a"))
	h.dispatch(key(hook.KeyDown, "a"))
	if len(sink.ids) != 2 {
		t.Errorf("expected hotkey to fire again after release, got %v", sink.ids)
	}
}

func TestHotkeyConflictAndUnregister(t *testing.T) {
	h := newTestHost(&recordingSink{})
	esc, _ := hotkey.ParseBinding(2, "Esc")
	again, _ := hotkey.ParseBinding(3, "Escape")

	if err := h.Hotkeys().Register(esc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := h.Hotkeys().Register(again); !errors.Is(err, hotkey.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	if err := h.Hotkeys().Unregister(2); err != nil {
		t.Errorf("Unregister: %v", err)
	}
	if err := h.Hotkeys().Unregister(2); !errors.Is(err, hotkey.ErrNotRegistered) {
		t.Errorf("expected ErrNotRegistered, got %v", err)
	}
}

func TestMouseTranslation(t *testing.T) {
	h := newTestHost(&recordingSink{})
	var got []mousehook.Event
	handle, err := h.Hooks().Install(func(ev mousehook.Event) { got = append(got, ev) })
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	h.dispatch(hook.Event{Kind: hook.MouseHold, Button: 1, X: 10, Y: 20})
	h.dispatch(hook.Event{Kind: hook.MouseHold, Button: 2, X: 11, Y: 21})
	h.dispatch(hook.Event{Kind: hook.MouseDrag, X: 30, Y: 40})
	h.dispatch(hook.Event{Kind: hook.MouseDown, Button: 1, X: 50, Y: 60})

	kinds := []mousehook.Kind{mousehook.Press, mousehook.Move, mousehook.Release}
	if len(got) != len(kinds) {
		t.Fatalf("got %d events, expected %d: %v", len(got), len(kinds), got)
	}
	for i, k := range kinds {
		if got[i].Kind != k {
			t.Errorf("event %d kind = %s, expected %s", i, got[i].Kind, k)
		}
	}
	if got[2].Pos.X != 50 || got[2].Pos.Y != 60 {
		t.Errorf("release at %+v", got[2].Pos)
	}

	if err := h.Hooks().Remove(handle); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	h.dispatch(hook.Event{Kind: hook.MouseMove, X: 1, Y: 1})
	if len(got) != 3 {
		t.Error("events delivered after removal")
	}
	if err := h.Hooks().Remove(handle); err == nil {
		t.Error("expected error removing a stale handle")
	}
}
