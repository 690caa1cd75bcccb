package key

import "strings"

// Modifier is a bit set of modifier keys held during a key press.
type Modifier uint8

const (
	// ModNone indicates no modifiers.
	ModNone Modifier = 0

	// ModCtrl is the Control key.
	ModCtrl Modifier = 1 << iota
	// ModAlt is the Alt (Option) key.
	ModAlt
	// ModShift is the Shift key.
	ModShift
	// ModSuper is the Super (Command/Windows) key.
	ModSuper
)

// With returns the set with mod added.
func (m Modifier) With(mod Modifier) Modifier {
	return m | mod
}

// Without returns the set with mod removed.
func (m Modifier) Without(mod Modifier) Modifier {
	return m &^ mod
}

// Has returns true if mod is in the set.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// HasCtrl returns true if Ctrl is in the set.
func (m Modifier) HasCtrl() bool { return m.Has(ModCtrl) }

// HasAlt returns true if Alt is in the set.
func (m Modifier) HasAlt() bool { return m.Has(ModAlt) }

// HasShift returns true if Shift is in the set.
func (m Modifier) HasShift() bool { return m.Has(ModShift) }

// HasSuper returns true if Super is in the set.
func (m Modifier) HasSuper() bool { return m.Has(ModSuper) }

// String returns a canonical representation like "Ctrl+Shift".
func (m Modifier) String() string {
	if m == ModNone {
		return "None"
	}
	var parts []string
	if m.HasCtrl() {
		parts = append(parts, "Ctrl")
	}
	if m.HasAlt() {
		parts = append(parts, "Alt")
	}
	if m.HasShift() {
		parts = append(parts, "Shift")
	}
	if m.HasSuper() {
		parts = append(parts, "Super")
	}
	return strings.Join(parts, "+")
}

// ModifierFromName returns the modifier for a name like "ctrl", "alt",
// "shift", "super". Returns ModNone for unknown names.
func ModifierFromName(name string) Modifier {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ctrl", "control", "c":
		return ModCtrl
	case "alt", "option", "a", "m":
		return ModAlt
	case "shift", "s":
		return ModShift
	case "super", "cmd", "command", "win", "d":
		return ModSuper
	default:
		return ModNone
	}
}
