package runtimeinit

import (
	"fmt"
	"log"

	"snapclip/src/clipboard"
	"snapclip/src/config"
	"snapclip/src/hotkey"
	"snapclip/src/logutil"
	"snapclip/src/screenshot"
)

// Hotkey identifiers delivered by the host.
const (
	ArmHotkeyID    = 1
	CancelHotkeyID = 2
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(enabled bool, path string)
}

// Runtime is everything startup resolves before the host is created.
type Runtime struct {
	Config  *config.Config
	Arm     hotkey.Binding
	Cancel  hotkey.Binding
	Policy  clipboard.Policy
	Grabber screenshot.Grabber
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging, cfg.LogFile)
	}
	if cfg.EnvPath != "" {
		log.Printf("Config: loaded %s", cfg.EnvPath)
	}

	arm, err := hotkey.ParseBinding(ArmHotkeyID, cfg.Hotkey)
	if err != nil {
		return nil, fmt.Errorf("HOTKEY %q: %w", logutil.Sanitize(cfg.Hotkey), err)
	}
	cancel, err := hotkey.ParseBinding(CancelHotkeyID, cfg.CancelHotkey)
	if err != nil {
		return nil, fmt.Errorf("CANCEL_HOTKEY %q: %w", logutil.Sanitize(cfg.CancelHotkey), err)
	}
	if arm.Modifiers == cancel.Modifiers && arm.Key == cancel.Key {
		return nil, fmt.Errorf("HOTKEY and CANCEL_HOTKEY are both %s", arm)
	}

	grabber, err := screenshot.NewGrabber(cfg.GrabBackend)
	if err != nil {
		return nil, fmt.Errorf("GRAB_BACKEND: %w", err)
	}

	rt := &Runtime{
		Config:  cfg,
		Arm:     arm,
		Cancel:  cancel,
		Policy:  clipboard.Policy{MaxAttempts: cfg.ClipboardAttempts, Backoff: cfg.ClipboardBackoff},
		Grabber: grabber,
	}
	log.Printf("Config: hotkey=%s cancel=%s grab=%s clipboard=%dx%v autotest=%v",
		arm, cancel, cfg.GrabBackend, rt.Policy.MaxAttempts, rt.Policy.Backoff, cfg.Autotest)
	return rt, nil
}
