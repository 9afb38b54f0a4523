package tray

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/getlantern/systray"
)

type Config struct {
	Title   string
	Tooltip string
	Version string
	// OnExit runs when the user picks Exit. It must not block.
	OnExit func()
}

// Tray is the notification-area icon. It never opens a window.
type Tray struct {
	cfg      Config
	quitOnce sync.Once
	quit     atomic.Bool
	ready    chan struct{}
}

func New(cfg Config) *Tray {
	if cfg.Title == "" {
		cfg.Title = "SnapClip"
	}
	if cfg.Tooltip == "" {
		cfg.Tooltip = cfg.Title
	}
	return &Tray{cfg: cfg, ready: make(chan struct{})}
}

// Run blocks until Quit is called. It must run on the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {
		log.Printf("Tray: exited")
	})
}

func (t *Tray) onReady() {
	if icon, err := Icon(); err != nil {
		log.Printf("Tray: icon unavailable: %v", err)
	} else {
		systray.SetIcon(icon)
	}
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Tooltip)

	mVersion := systray.AddMenuItem(versionLabel(t.cfg.Title, t.cfg.Version), "")
	mVersion.Disable()
	systray.AddSeparator()
	mExit := systray.AddMenuItem("Exit", "Stop "+t.cfg.Title)

	go func() {
		for range mExit.ClickedCh {
			log.Printf("Tray: exit selected")
			if t.cfg.OnExit != nil {
				t.cfg.OnExit()
			}
		}
	}()

	close(t.ready)
	log.Printf("Tray: ready")
	if t.quit.Load() {
		t.Quit()
	}
}

// Quit removes the icon and makes Run return. Safe to call more than once,
// and before the icon is ready.
func (t *Tray) Quit() {
	t.quit.Store(true)
	select {
	case <-t.ready:
		t.quitOnce.Do(systray.Quit)
	default:
	}
}

func versionLabel(title, version string) string {
	if version == "" {
		return title
	}
	return fmt.Sprintf("%s %s", title, version)
}
