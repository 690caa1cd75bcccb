package key

import (
	"strings"
	"unicode"
)

// Event is a single key press: a key plus the modifier set held with it.
type Event struct {
	// Key identifies the key pressed.
	Key Key

	// Rune is the character for KeyRune events.
	Rune rune

	// Modifiers contains the active modifier keys.
	Modifiers Modifier
}

// NewRuneEvent creates an event for a character key.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}
}

// NewSpecialEvent creates an event for a non-character key.
func NewSpecialEvent(k Key, mods Modifier) Event {
	return Event{Key: k, Modifiers: mods}
}

// IsRune returns true if this is a character key event.
func (e Event) IsRune() bool {
	return e.Key == KeyRune && e.Rune != 0
}

// IsPlainRune returns true for a printable character with no modifiers
// beyond Shift. Shift alone is not a modifier for characters since it
// changes the character itself.
func (e Event) IsPlainRune() bool {
	return e.IsRune() && unicode.IsPrint(e.Rune) &&
		e.Modifiers&(ModCtrl|ModAlt|ModSuper) == 0
}

// Equals reports whether two events describe the same key press.
func (e Event) Equals(other Event) bool {
	return e.Key == other.Key && e.Rune == other.Rune && e.Modifiers == other.Modifiers
}

// String returns a compact notation like "a", "C-s", "C-S-Left", "Enter".
func (e Event) String() string {
	var parts []string
	if e.Modifiers.HasCtrl() {
		parts = append(parts, "C")
	}
	if e.Modifiers.HasAlt() {
		parts = append(parts, "A")
	}
	if e.Modifiers.HasSuper() {
		parts = append(parts, "D")
	}
	// Shift is only shown for non-character keys; for characters the
	// shifted rune already carries it.
	if e.Modifiers.HasShift() && !e.IsRune() {
		parts = append(parts, "S")
	}

	var name string
	switch {
	case e.Key == KeyRune && e.Rune == ' ':
		name = "Space"
	case e.Key == KeyRune:
		name = string(e.Rune)
	case e.Key == KeyEscape:
		name = "Esc"
	default:
		name = e.Key.String()
	}

	parts = append(parts, name)
	return strings.Join(parts, "-")
}
