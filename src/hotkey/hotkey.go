package hotkey

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
)

var (
	// ErrConflict means another process (or binding) already owns the combination.
	ErrConflict = errors.New("hotkey already registered")
	// ErrNotRegistered is returned by backends asked to drop an unknown id.
	ErrNotRegistered = errors.New("hotkey not registered")
	// ErrInvalid is returned for combinations that cannot be parsed.
	ErrInvalid = errors.New("invalid hotkey")
)

// Modifier is a bit set using the Win32 MOD_* values.
type Modifier uint32

const (
	ModAlt   Modifier = 0x0001
	ModCtrl  Modifier = 0x0002
	ModShift Modifier = 0x0004
	ModWin   Modifier = 0x0008
)

// Binding is a global key combination plus the identifier delivered when it fires.
type Binding struct {
	ID        int
	Modifiers Modifier
	// Key is the Windows virtual-key code of the non-modifier key.
	Key uint16
	// KeyName is the normalized key name, e.g. "a" or "esc".
	KeyName string
}

func (b Binding) String() string {
	var parts []string
	if b.Modifiers&ModCtrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if b.Modifiers&ModAlt != 0 {
		parts = append(parts, "Alt")
	}
	if b.Modifiers&ModShift != 0 {
		parts = append(parts, "Shift")
	}
	if b.Modifiers&ModWin != 0 {
		parts = append(parts, "Win")
	}
	name := b.KeyName
	if len(name) == 1 {
		name = strings.ToUpper(name)
	} else if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	parts = append(parts, name)
	return strings.Join(parts, "+")
}

// ParseBinding converts a combination such as "Alt+Shift+A" or "Esc" into a Binding.
func ParseBinding(id int, combo string) (Binding, error) {
	b := Binding{ID: id}
	keys := parseHotkey(combo)
	for _, k := range keys {
		switch k {
		case "":
			return Binding{}, fmt.Errorf("%w %q: empty key", ErrInvalid, combo)
		case "ctrl":
			b.Modifiers |= ModCtrl
		case "alt":
			b.Modifiers |= ModAlt
		case "shift":
			b.Modifiers |= ModShift
		case "cmd":
			b.Modifiers |= ModWin
		default:
			if b.KeyName != "" {
				return Binding{}, fmt.Errorf("%w %q: more than one key (%s, %s)", ErrInvalid, combo, b.KeyName, k)
			}
			codes := keyNameToRawcodes(k)
			if len(codes) == 0 {
				return Binding{}, fmt.Errorf("%w %q: unknown key %q", ErrInvalid, combo, k)
			}
			b.Key = codes[0]
			b.KeyName = canonicalKeyName(k)
		}
	}
	if b.KeyName == "" {
		return Binding{}, fmt.Errorf("%w %q: no key", ErrInvalid, combo)
	}
	return b, nil
}

// Backend is the OS capability that owns global hotkeys.
type Backend interface {
	Register(b Binding) error
	Unregister(id int) error
}

// Registrar tracks which bindings are live so teardown is exact and idempotent.
type Registrar struct {
	backend Backend
	live    map[int]Binding
}

// NewRegistrar wraps a backend.
func NewRegistrar(backend Backend) *Registrar {
	return &Registrar{backend: backend, live: make(map[int]Binding)}
}

// Register binds the combination. Registering an identical live binding is a no-op.
func (r *Registrar) Register(b Binding) error {
	if cur, ok := r.live[b.ID]; ok {
		if cur == b {
			return nil
		}
		r.Unregister(b.ID)
	}
	if err := r.backend.Register(b); err != nil {
		return fmt.Errorf("register %s: %w", b, err)
	}
	r.live[b.ID] = b
	log.Printf("Registered global hotkey %s (id=%d)", b, b.ID)
	return nil
}

// Unregister drops the binding. Unknown ids and "not registered" replies are swallowed.
func (r *Registrar) Unregister(id int) {
	b, ok := r.live[id]
	if !ok {
		return
	}
	delete(r.live, id)
	if err := r.backend.Unregister(id); err != nil && !errors.Is(err, ErrNotRegistered) {
		log.Printf("Unregister hotkey %s (id=%d) failed: %v", b, id, err)
		return
	}
	log.Printf("Unregistered global hotkey %s (id=%d)", b, id)
}

// UnregisterAll drops every live binding.
func (r *Registrar) UnregisterAll() {
	ids := make([]int, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		r.Unregister(id)
	}
}

// Live reports whether id is currently registered.
func (r *Registrar) Live(id int) bool {
	_, ok := r.live[id]
	return ok
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			keys = append(keys, "ctrl")
		case "alt":
			keys = append(keys, "alt")
		case "shift":
			keys = append(keys, "shift")
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	return keys
}

func canonicalKeyName(name string) string {
	if alias, ok := keyAliases[name]; ok {
		return alias
	}
	return name
}

var keyAliases = map[string]string{
	"escape": "esc",
	"return": "enter",
	"del":    "delete",
	"ins":    "insert",
	"pgup":   "pageup",
	"pgdn":   "pagedown",
}

// Windows virtual-key codes for keys that are not letters, digits or F-keys.
var specialKeys = map[string]uint16{
	"space":       0x20, // VK_SPACE
	"enter":       0x0D, // VK_RETURN
	"esc":         0x1B, // VK_ESCAPE
	"tab":         0x09,
	"backspace":   0x08, // VK_BACK
	"delete":      0x2E,
	"insert":      0x2D,
	"home":        0x24,
	"end":         0x23,
	"pageup":      0x21, // VK_PRIOR
	"pagedown":    0x22, // VK_NEXT
	"left":        0x25,
	"up":          0x26,
	"right":       0x27,
	"down":        0x28,
	"printscreen": 0x2C, // VK_SNAPSHOT
}

// keyNameToRawcodes maps a key name to its Windows virtual-key codes.
// Modifiers return both the left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = canonicalKeyName(strings.ToLower(strings.TrimSpace(keyName)))

	switch keyName {
	case "ctrl":
		return []uint16{0xA2, 0xA3} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{0xA4, 0xA5} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{0xA0, 0xA1} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{0x5B, 0x5C} // VK_LWIN, VK_RWIN
	}

	if len(keyName) == 1 {
		c := keyName[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16('A' + (c - 'a'))}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)}
		}
	}

	var fn int
	if _, err := fmt.Sscanf(keyName, "f%d", &fn); err == nil && fmt.Sprintf("f%d", fn) == keyName && fn >= 1 && fn <= 24 {
		return []uint16{uint16(0x70 + fn - 1)} // VK_F1..VK_F24
	}

	if vk, ok := specialKeys[keyName]; ok {
		return []uint16{vk}
	}
	return nil
}
