package clipboard

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"
)

type fakeBackend struct {
	calls    []string
	failSets int // number of leading Set calls that fail
	openErr  error
	sets     int
	data     []byte
}

func (f *fakeBackend) Open() error {
	f.calls = append(f.calls, "open")
	return f.openErr
}

func (f *fakeBackend) Empty() error {
	f.calls = append(f.calls, "empty")
	return nil
}

func (f *fakeBackend) Set(data []byte) error {
	f.calls = append(f.calls, "set")
	f.sets++
	if f.sets <= f.failSets {
		return errors.New("clipboard busy")
	}
	f.data = data
	return nil
}

func (f *fakeBackend) Close() error {
	f.calls = append(f.calls, "close")
	return nil
}

func (f *fakeBackend) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

func newTestWriter(b Backend, enc Encoder) (*Writer, *[]time.Duration) {
	var sleeps []time.Duration
	w := NewWriter(b, enc, DefaultPolicy)
	w.Sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return w, &sleeps
}

func TestWriteRetries(t *testing.T) {
	tests := []struct {
		name      string
		failSets  int
		wantOK    bool
		wantSets  int
		wantSleep int
	}{
		{"first attempt", 0, true, 1, 0},
		{"third attempt", 2, true, 3, 2},
		{"last attempt", 4, true, 5, 4},
		{"exhausted", 10, false, 5, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := &fakeBackend{failSets: tt.failSets}
			w, sleeps := newTestWriter(fb, PNGEncoder{})

			err := w.TryWrite(testImage(4, 4))
			if (err == nil) != tt.wantOK {
				t.Fatalf("TryWrite() error = %v, wantOK %v", err, tt.wantOK)
			}
			if !tt.wantOK && !errors.Is(err, ErrWriteFailed) {
				t.Errorf("expected ErrWriteFailed, got %v", err)
			}
			if fb.sets != tt.wantSets {
				t.Errorf("Set called %d times, expected %d", fb.sets, tt.wantSets)
			}
			if len(*sleeps) != tt.wantSleep {
				t.Errorf("slept %d times, expected %d", len(*sleeps), tt.wantSleep)
			}
			for _, d := range *sleeps {
				if d != 50*time.Millisecond {
					t.Errorf("backoff = %v, expected 50ms", d)
				}
			}
			if fb.count("open") != fb.count("close") {
				t.Errorf("open/close mismatch: %v", fb.calls)
			}
		})
	}
}

func TestWriteClosesAfterFailedOpen(t *testing.T) {
	fb := &fakeBackend{openErr: errors.New("owned by another process")}
	w, _ := newTestWriter(fb, PNGEncoder{})

	if w.Write(testImage(4, 4)) {
		t.Fatal("expected write to fail")
	}
	if fb.count("open") != 5 || fb.count("close") != 5 {
		t.Errorf("expected 5 open and 5 close calls, got %v", fb.calls)
	}
	if fb.count("set") != 0 {
		t.Error("set must not be called when open fails")
	}
}

func TestWriteEncodeFailureSkipsClipboard(t *testing.T) {
	fb := &fakeBackend{}
	enc := EncoderFunc(func(image.Image) ([]byte, error) { return nil, errors.New("boom") })
	w, sleeps := newTestWriter(fb, enc)

	err := w.TryWrite(testImage(4, 4))
	if !errors.Is(err, ErrEncodeFailed) {
		t.Fatalf("expected ErrEncodeFailed, got %v", err)
	}
	if len(fb.calls) != 0 {
		t.Errorf("clipboard touched after encode failure: %v", fb.calls)
	}
	if len(*sleeps) != 0 {
		t.Error("no backoff expected after encode failure")
	}

	if err := w.TryWrite(nil); !errors.Is(err, ErrEncodeFailed) {
		t.Errorf("nil image: expected ErrEncodeFailed, got %v", err)
	}
}

func TestDIBEncoderStripsFileHeader(t *testing.T) {
	img := testImage(5, 3)
	data, err := DIBEncoder{}.Encode(img)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(data) < 40 {
		t.Fatalf("DIB too short: %d bytes", len(data))
	}
	if data[0] == 'B' && data[1] == 'M' {
		t.Fatal("file header was not stripped")
	}
	if size := binary.LittleEndian.Uint32(data[0:4]); size != 40 {
		t.Errorf("biSize = %d, expected 40", size)
	}
	if w := int32(binary.LittleEndian.Uint32(data[4:8])); w != 5 {
		t.Errorf("biWidth = %d, expected 5", w)
	}
	if h := int32(binary.LittleEndian.Uint32(data[8:12])); h != 3 {
		t.Errorf("biHeight = %d, expected 3", h)
	}
}

func TestZeroPolicyStillAttemptsOnce(t *testing.T) {
	fb := &fakeBackend{}
	w := &Writer{Backend: fb, Encoder: PNGEncoder{}}
	if !w.Write(testImage(3, 3)) {
		t.Fatal("expected success")
	}
	if fb.sets != 1 {
		t.Errorf("expected 1 set, got %d", fb.sets)
	}
}
