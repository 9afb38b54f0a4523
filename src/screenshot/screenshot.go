package screenshot

import (
	"errors"
	"fmt"
	"image"
	"log"
	"strings"

	kbinani "github.com/kbinani/screenshot"
	vova "github.com/vova616/screenshot"

	"snapclip/src/session"
)

// ErrGrabFailed wraps every failure to read pixels from the screen.
var ErrGrabFailed = errors.New("screen grab failed")

const (
	BackendKbinani = "kbinani"
	BackendVova616 = "vova616"
)

// Grabber reads a rectangle of the virtual screen.
type Grabber interface {
	Grab(r session.Rect) (*image.RGBA, error)
}

// GrabberFunc adapts a capture function to Grabber.
type GrabberFunc func(image.Rectangle) (*image.RGBA, error)

// Grab validates r, converts it to image coordinates and captures it.
func (f GrabberFunc) Grab(r session.Rect) (*image.RGBA, error) {
	if r.Width < session.MinSpan || r.Height < session.MinSpan {
		return nil, fmt.Errorf("%w: degenerate region %dx%d", ErrGrabFailed, r.Width, r.Height)
	}
	bounds := image.Rect(r.Left, r.Top, r.Right(), r.Bottom())
	img, err := f(bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGrabFailed, err)
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no image for %v", ErrGrabFailed, bounds)
	}
	if got := img.Bounds().Size(); got.X != r.Width || got.Y != r.Height {
		log.Printf("Screenshot: requested %dx%d, got %dx%d", r.Width, r.Height, got.X, got.Y)
	}
	return img, nil
}

// NewGrabber selects a capture library by name. Empty selects kbinani.
func NewGrabber(backend string) (Grabber, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendKbinani:
		return GrabberFunc(kbinani.CaptureRect), nil
	case BackendVova616:
		return GrabberFunc(vova.CaptureRect), nil
	default:
		return nil, fmt.Errorf("unknown grab backend %q", backend)
	}
}

// DisplayBounds returns the bounds of every active display, primary first.
func DisplayBounds() ([]image.Rectangle, error) {
	n := kbinani.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays found")
	}
	bounds := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		bounds = append(bounds, kbinani.GetDisplayBounds(i))
	}
	return bounds, nil
}

// VirtualBounds returns the union of all displays.
func VirtualBounds() (image.Rectangle, error) {
	displays, err := DisplayBounds()
	if err != nil {
		return image.Rectangle{}, err
	}
	union := displays[0]
	for _, b := range displays[1:] {
		union = union.Union(b)
	}
	return union, nil
}

// LogDisplays writes the display layout to the log.
func LogDisplays() {
	displays, err := DisplayBounds()
	if err != nil {
		log.Printf("Screenshot: %v", err)
		return
	}
	for i, b := range displays {
		log.Printf("Screenshot: display %d bounds %v", i, b)
	}
	if primary, err := vova.ScreenRect(); err == nil {
		log.Printf("Screenshot: primary screen rect %v", primary)
	}
}
