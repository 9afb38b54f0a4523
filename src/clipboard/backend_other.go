//go:build !windows

package clipboard

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	initOnce sync.Once
	initErr  error
)

// systemBackend writes PNG data through golang.design/x/clipboard. The
// library opens and closes the native clipboard inside Write, so Open, Empty
// and Close only check that it was initialized.
type systemBackend struct{}

// NewSystemBackend returns the platform clipboard and the PNG encoder it
// expects. The owner window is unused outside Windows.
func NewSystemBackend(owner uintptr) (Backend, Encoder, error) {
	initOnce.Do(func() {
		initErr = clipboard.Init()
	})
	if initErr != nil {
		return nil, nil, fmt.Errorf("clipboard init: %w", initErr)
	}
	return systemBackend{}, PNGEncoder{}, nil
}

func (systemBackend) Open() error  { return initErr }
func (systemBackend) Empty() error { return nil }
func (systemBackend) Close() error { return nil }

func (systemBackend) Set(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("no data")
	}
	// Write returns a channel closed when the content is replaced; nil means
	// the write did not take.
	if changed := clipboard.Write(clipboard.FmtImage, data); changed == nil {
		return fmt.Errorf("clipboard rejected %d bytes", len(data))
	}
	return nil
}
