package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultHotkey            = "Alt+Shift+A"
	DefaultCancelHotkey      = "Esc"
	DefaultClipboardAttempts = 5
	DefaultClipboardBackoff  = 50 * time.Millisecond
	DefaultGrabBackend       = "kbinani"
	EnvPathEnvVar            = "SNAPCLIP_ENV"
	logFileName              = "snapclip.log"
)

type LoadOptions struct {
	// EnvFileOverride replaces the .env lookup.
	EnvFileOverride string
	HotkeyOverride  string
	// Autotest forces autotest mode on; false leaves the environment in charge.
	Autotest bool
}

type Config struct {
	EnvPath           string
	Hotkey            string
	CancelHotkey      string
	EnableFileLogging bool
	LogFile           string
	ClipboardAttempts int
	ClipboardBackoff  time.Duration
	GrabBackend       string
	Autotest          bool
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Load configuration from sources in priority order:
	// 1) explicit --env-file
	// 2) .env in the application (executable) directory
	// 3) path named by SNAPCLIP_ENV
	// Process environment variables always win over file values.
	envPath := resolveEnvPath(opts)
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		EnvPath:           envPath,
		Hotkey:            getEnvWithDefault("HOTKEY", DefaultHotkey),
		CancelHotkey:      getEnvWithDefault("CANCEL_HOTKEY", DefaultCancelHotkey),
		EnableFileLogging: getBool("ENABLE_FILE_LOGGING", true),
		LogFile:           getEnvWithDefault("LOG_FILE", filepath.Join(os.TempDir(), logFileName)),
		ClipboardAttempts: getPositiveInt("CLIPBOARD_ATTEMPTS", DefaultClipboardAttempts),
		ClipboardBackoff:  time.Duration(getPositiveInt("CLIPBOARD_BACKOFF_MS", int(DefaultClipboardBackoff/time.Millisecond))) * time.Millisecond,
		GrabBackend:       strings.ToLower(getEnvWithDefault("GRAB_BACKEND", DefaultGrabBackend)),
		Autotest:          opts.Autotest || getBool("SNAPCLIP_AUTOTEST", false),
	}
	if hk := strings.TrimSpace(opts.HotkeyOverride); hk != "" {
		cfg.Hotkey = hk
	}

	return cfg, nil
}

func resolveEnvPath(opts LoadOptions) string {
	if override := strings.TrimSpace(opts.EnvFileOverride); override != "" {
		return override
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getPositiveInt(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
