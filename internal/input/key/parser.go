package key

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Parse errors.
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a single key specification into an Event.
//
// Supported formats:
//   - Single character: "a", "A", "1", "@"
//   - Key names: "Enter", "Esc", "Tab", "Space", "F5"
//   - Emacs-style: "C-s", "C-S-p", "A-Left"
//   - Modifier+key: "Ctrl+S", "Alt+F4", "Ctrl+Shift+P"
//   - Vim-style: "<C-s>", "<CR>", "<Esc>"
func Parse(spec string) (Event, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}

	if strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") {
		inner := strings.TrimSpace(spec[1 : len(spec)-1])
		if inner == "" {
			return Event{}, ErrInvalidSpec
		}
		return parseDashed(inner)
	}

	if strings.Contains(spec, "+") {
		return parsePlus(spec)
	}

	// Emacs notation uses single-letter modifier prefixes ("C-x").
	// A lone "-" or a trailing dash is still a plain character.
	if len(spec) > 2 && spec[1] == '-' {
		return parseDashed(spec)
	}

	return parseSingle(spec)
}

// parseDashed parses "C-s", "C-S-p", "A-F4" style notation (also used for
// the inside of Vim-style <...> specs).
func parseDashed(spec string) (Event, error) {
	parts := strings.Split(spec, "-")
	var mods Modifier
	keyPart := parts[len(parts)-1]

	for _, p := range parts[:len(parts)-1] {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "c":
			mods = mods.With(ModCtrl)
		case "a", "m":
			mods = mods.With(ModAlt)
		case "s":
			mods = mods.With(ModShift)
		case "d":
			mods = mods.With(ModSuper)
		default:
			return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
	}

	return parseKeyPart(keyPart, mods)
}

// parsePlus parses "Ctrl+S" style notation.
func parsePlus(spec string) (Event, error) {
	parts := strings.Split(spec, "+")
	if len(parts) < 2 {
		return Event{}, ErrInvalidSpec
	}

	var mods Modifier
	for _, p := range parts[:len(parts)-1] {
		mod := ModifierFromName(p)
		if mod == ModNone {
			return Event{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidSpec, p)
		}
		mods = mods.With(mod)
	}

	return parseKeyPart(strings.TrimSpace(parts[len(parts)-1]), mods)
}

// parseKeyPart resolves the final key component with the given modifiers.
func parseKeyPart(part string, mods Modifier) (Event, error) {
	if part == "" {
		return Event{}, ErrInvalidSpec
	}

	if k := KeyFromName(part); k != KeyNone {
		return NewSpecialEvent(k, mods), nil
	}

	runes := []rune(part)
	if len(runes) != 1 {
		return Event{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, part)
	}

	r := runes[0]
	// Modified characters are normalized to lowercase so "C-S" and "C-s"
	// describe the same chord.
	if mods != ModNone {
		r = unicode.ToLower(r)
	} else if unicode.IsUpper(r) {
		mods = ModShift
	}
	return NewRuneEvent(r, mods), nil
}

// parseSingle parses a bare character or key name.
func parseSingle(spec string) (Event, error) {
	if k := KeyFromName(spec); k != KeyNone {
		return NewSpecialEvent(k, ModNone), nil
	}

	runes := []rune(spec)
	if len(runes) != 1 {
		return Event{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, spec)
	}

	r := runes[0]
	var mods Modifier
	if unicode.IsUpper(r) {
		mods = ModShift
	}
	return NewRuneEvent(r, mods), nil
}

// ParseSequence parses a space-separated list of key specifications into a
// Sequence. Examples: "C-x C-s", "g g", "<C-x> <C-c>", "Ctrl+S".
func ParseSequence(s string) (*Sequence, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptySpec
	}

	seq := NewSequence()
	for _, part := range strings.Fields(s) {
		event, err := Parse(part)
		if err != nil {
			return nil, err
		}
		seq.Add(event)
	}
	return seq, nil
}
