package mousehook

import (
	"errors"
	"testing"

	"snapclip/src/session"
)

type fakeBackend struct {
	next       Handle
	installs   int
	removes    []Handle
	installErr error
	removeErr  error
	onEvent    func(Event)
}

func (f *fakeBackend) Install(onEvent func(Event)) (Handle, error) {
	f.installs++
	if f.installErr != nil {
		return 0, f.installErr
	}
	f.next++
	f.onEvent = onEvent
	return f.next, nil
}

func (f *fakeBackend) Remove(h Handle) error {
	f.removes = append(f.removes, h)
	return f.removeErr
}

func TestInstallIsSingleton(t *testing.T) {
	b := &fakeBackend{}
	c := NewController(b)

	h1, err := c.Install(func(Event) {})
	if err != nil {
		t.Fatalf("first install: %v", err)
	}
	h2, err := c.Install(func(Event) {})
	if err != nil {
		t.Fatalf("second install: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected same handle, got %v and %v", h1, h2)
	}
	if b.installs != 1 {
		t.Errorf("expected 1 backend install, got %d", b.installs)
	}
	if !c.Active() {
		t.Error("expected controller to be active")
	}
}

func TestInstallFailure(t *testing.T) {
	b := &fakeBackend{installErr: errors.New("access denied")}
	c := NewController(b)

	_, err := c.Install(func(Event) {})
	if !errors.Is(err, ErrInstallFailed) {
		t.Fatalf("expected ErrInstallFailed, got %v", err)
	}
	if c.Active() {
		t.Error("controller must stay inactive after failure")
	}
	if b.installs != 1 {
		t.Errorf("install must not be retried, got %d attempts", b.installs)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	b := &fakeBackend{}
	c := NewController(b)

	c.Remove(0)
	h, _ := c.Install(func(Event) {})
	c.Remove(h)
	c.Remove(h)
	c.Remove(0)

	if len(b.removes) != 1 {
		t.Fatalf("expected exactly 1 backend removal, got %d", len(b.removes))
	}
	if c.Active() {
		t.Error("expected controller inactive after removal")
	}

	h2, err := c.Install(func(Event) {})
	if err != nil {
		t.Fatalf("reinstall: %v", err)
	}
	c.Remove(h)
	if !c.Active() {
		t.Error("removing a stale handle must not uninstall the live hook")
	}
	c.Remove(h2)
}

func TestRemoveBackendErrorSwallowed(t *testing.T) {
	b := &fakeBackend{removeErr: errors.New("invalid hook handle")}
	c := NewController(b)
	h, _ := c.Install(func(Event) {})
	c.Remove(h)
	if c.Active() {
		t.Error("controller should forget the handle even if the OS complains")
	}
}

func TestTrackScenario(t *testing.T) {
	s := session.New()
	events := []Event{
		{Kind: Move, Pos: session.Point{X: 5, Y: 5}},
		{Kind: Press, Pos: session.Point{X: 100, Y: 100}},
		{Kind: Move, Pos: session.Point{X: 100, Y: 100}},
	}
	for _, ev := range events {
		if Track(s, ev) {
			t.Fatalf("%v must not complete the session", ev.Kind)
		}
	}
	if !Track(s, Event{Kind: Release, Pos: session.Point{X: 250, Y: 300}}) {
		t.Fatal("release should complete the session")
	}
	if Track(s, Event{Kind: Release, Pos: session.Point{X: 260, Y: 310}}) {
		t.Fatal("completion must be signalled only once")
	}

	r, ok := s.Bounds()
	if !ok {
		t.Fatal("expected a region")
	}
	want := session.Rect{Left: 100, Top: 100, Width: 150, Height: 200}
	if r != want {
		t.Errorf("Bounds() = %+v, expected %+v", r, want)
	}
}

func TestTrackNilSession(t *testing.T) {
	if Track(nil, Event{Kind: Release}) {
		t.Fatal("nil session must never complete")
	}
}
