package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"runtime"
	"time"

	"golang.org/x/image/bmp"
)

var (
	// ErrEncodeFailed means the image could not be converted to clipboard bytes.
	ErrEncodeFailed = errors.New("clipboard encode failed")
	// ErrWriteFailed means every write attempt failed.
	ErrWriteFailed = errors.New("clipboard write failed")
)

// bmpFileHeaderSize is the BITMAPFILEHEADER prefix that CF_DIB omits.
const bmpFileHeaderSize = 14

// Policy bounds the retry loop around a contended clipboard.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultPolicy: 5 attempts, 50ms apart.
var DefaultPolicy = Policy{MaxAttempts: 5, Backoff: 50 * time.Millisecond}

// Encoder turns pixels into the bytes a Backend stores.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(img image.Image) ([]byte, error)

func (f EncoderFunc) Encode(img image.Image) ([]byte, error) { return f(img) }

// DIBEncoder produces a device-independent bitmap: BITMAPINFOHEADER plus pixel rows.
type DIBEncoder struct{}

func (DIBEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}
	data := buf.Bytes()
	if len(data) <= bmpFileHeaderSize {
		return nil, fmt.Errorf("bitmap too short (%d bytes)", len(data))
	}
	return data[bmpFileHeaderSize:], nil
}

// PNGEncoder produces PNG bytes for clipboards that speak image/png.
type PNGEncoder struct{}

func (PNGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Backend is the OS clipboard. Close is called after every Open attempt,
// including failed ones, and must tolerate being called when Open failed.
type Backend interface {
	Open() error
	Empty() error
	Set(data []byte) error
	Close() error
}

// Writer places one image on the clipboard with bounded retries.
type Writer struct {
	Backend Backend
	Encoder Encoder
	Policy  Policy
	// Sleep waits between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// NewWriter builds a writer with the default sleep.
func NewWriter(backend Backend, enc Encoder, policy Policy) *Writer {
	return &Writer{Backend: backend, Encoder: enc, Policy: policy, Sleep: time.Sleep}
}

// Write reports whether the image ended up on the clipboard. Failures are logged.
func (w *Writer) Write(img image.Image) bool {
	if err := w.TryWrite(img); err != nil {
		log.Printf("Clipboard: %v", err)
		return false
	}
	return true
}

// TryWrite encodes img once, then runs up to Policy.MaxAttempts
// open/empty/set/close sequences. Nothing touches the clipboard if encoding fails.
func (w *Writer) TryWrite(img image.Image) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrEncodeFailed)
	}
	data, err := w.Encoder.Encode(img)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	attempts := w.Policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := w.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			sleep(w.Policy.Backoff)
		}
		lastErr = w.attempt(data)
		if lastErr == nil {
			if attempt > 1 {
				log.Printf("Clipboard write succeeded on attempt %d/%d", attempt, attempts)
			}
			return nil
		}
		log.Printf("Clipboard attempt %d/%d failed: %v", attempt, attempts, lastErr)
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrWriteFailed, attempts, lastErr)
}

// attempt runs one open/empty/set/close sequence on a single OS thread. The
// Win32 clipboard is owned by the thread that opened it.
func (w *Writer) attempt(data []byte) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer func() {
		if err := w.Backend.Close(); err != nil {
			log.Printf("Clipboard close failed: %v", err)
		}
	}()
	if err := w.Backend.Open(); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if err := w.Backend.Empty(); err != nil {
		return fmt.Errorf("empty: %w", err)
	}
	if err := w.Backend.Set(data); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	return nil
}
