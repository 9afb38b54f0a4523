package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"HOTKEY", "CANCEL_HOTKEY", "ENABLE_FILE_LOGGING", "LOG_FILE",
	"CLIPBOARD_ATTEMPTS", "CLIPBOARD_BACKOFF_MS", "GRAB_BACKEND",
	"SNAPCLIP_AUTOTEST", EnvPathEnvVar,
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadWithOptions(LoadOptions{EnvFileOverride: ""})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Hotkey != DefaultHotkey {
		t.Errorf("Expected Hotkey %q, got %q", DefaultHotkey, cfg.Hotkey)
	}
	if cfg.CancelHotkey != "Esc" {
		t.Errorf("Expected CancelHotkey 'Esc', got %q", cfg.CancelHotkey)
	}
	if !cfg.EnableFileLogging {
		t.Error("Expected file logging enabled by default")
	}
	if cfg.LogFile != filepath.Join(os.TempDir(), "snapclip.log") {
		t.Errorf("Unexpected LogFile %q", cfg.LogFile)
	}
	if cfg.ClipboardAttempts != 5 || cfg.ClipboardBackoff != 50*time.Millisecond {
		t.Errorf("Unexpected clipboard policy %d/%v", cfg.ClipboardAttempts, cfg.ClipboardBackoff)
	}
	if cfg.GrabBackend != "kbinani" {
		t.Errorf("Unexpected GrabBackend %q", cfg.GrabBackend)
	}
	if cfg.Autotest {
		t.Error("Autotest must default to off")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOTKEY", "Ctrl+Shift+T")
	t.Setenv("ENABLE_FILE_LOGGING", "false")
	t.Setenv("CLIPBOARD_ATTEMPTS", "3")
	t.Setenv("CLIPBOARD_BACKOFF_MS", "-7")
	t.Setenv("GRAB_BACKEND", "VOVA616")
	t.Setenv("SNAPCLIP_AUTOTEST", "1")

	cfg, err := LoadWithOptions(LoadOptions{})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Hotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected Hotkey 'Ctrl+Shift+T', got %q", cfg.Hotkey)
	}
	if cfg.EnableFileLogging {
		t.Error("Expected file logging disabled")
	}
	if cfg.ClipboardAttempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", cfg.ClipboardAttempts)
	}
	if cfg.ClipboardBackoff != 50*time.Millisecond {
		t.Errorf("Invalid backoff must fall back to default, got %v", cfg.ClipboardBackoff)
	}
	if cfg.GrabBackend != "vova616" {
		t.Errorf("Unexpected GrabBackend %q", cfg.GrabBackend)
	}
	if !cfg.Autotest {
		t.Error("Expected autotest on")
	}
}

func TestLoadEnvFileOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, "custom.env")
	content := "HOTKEY=Ctrl+Alt+S\nCANCEL_HOTKEY=F12\nCLIPBOARD_BACKOFF_MS=10\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("HOTKEY")
		os.Unsetenv("CANCEL_HOTKEY")
		os.Unsetenv("CLIPBOARD_BACKOFF_MS")
	})

	cfg, err := LoadWithOptions(LoadOptions{EnvFileOverride: envFile, HotkeyOverride: "Win+Shift+S", Autotest: true})
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.EnvPath != envFile {
		t.Errorf("Expected EnvPath %q, got %q", envFile, cfg.EnvPath)
	}
	if cfg.Hotkey != "Win+Shift+S" {
		t.Errorf("Hotkey override ignored, got %q", cfg.Hotkey)
	}
	if cfg.CancelHotkey != "F12" {
		t.Errorf("Expected CancelHotkey from file, got %q", cfg.CancelHotkey)
	}
	if cfg.ClipboardBackoff != 10*time.Millisecond {
		t.Errorf("Expected 10ms backoff, got %v", cfg.ClipboardBackoff)
	}
	if !cfg.Autotest {
		t.Error("Autotest option ignored")
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := LoadWithOptions(LoadOptions{EnvFileOverride: filepath.Join(t.TempDir(), "missing.env")}); err == nil {
		t.Error("Expected error for missing --env-file")
	}
}
