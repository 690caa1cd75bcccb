package keymap

import (
	"fmt"

	"github.com/smash-editor/smash/internal/command"
	"github.com/smash-editor/smash/internal/input/key"
)

// Binding maps a key sequence specification to a command name. This is
// the declarative form used by configuration files and builtin layers.
type Binding struct {
	// Keys is the key sequence, e.g. "C-x C-s", "g g", "Ctrl+S".
	Keys string

	// Command is the dotted command name, e.g. "file.save".
	Command string

	// Description documents the binding for display purposes.
	Description string
}

// parsedBinding is a binding with its sequence and command resolved.
type parsedBinding struct {
	seq *key.Sequence
	cmd command.Command
}

// Layer is a named, validated set of bindings with a precedence rank given
// by its position in a Keymap. Within a layer sequences are unique and
// prefix-free: no terminal binding is a strict prefix of another.
type Layer struct {
	name     string
	bindings []parsedBinding
	maxLen   int
}

// match classification of a pending sequence against a layer.
type match int

const (
	matchNone match = iota
	matchPrefix
	matchExact
)

// NewLayer builds a layer from declarative bindings. Invalid key
// specifications, unknown command names, duplicate sequences, and
// terminal-prefix-of-terminal conflicts are configuration errors.
func NewLayer(name string, bindings []Binding) (*Layer, error) {
	l := &Layer{name: name, bindings: make([]parsedBinding, 0, len(bindings))}

	for i, b := range bindings {
		seq, err := key.ParseSequence(b.Keys)
		if err != nil {
			return nil, fmt.Errorf("layer %q binding %d (%s): %w", name, i, b.Keys, err)
		}
		cmd, err := command.Parse(b.Command)
		if err != nil {
			return nil, fmt.Errorf("layer %q binding %d (%s): %w", name, i, b.Keys, err)
		}

		for _, existing := range l.bindings {
			if existing.seq.Equals(seq) {
				return nil, fmt.Errorf("layer %q: duplicate binding for %q", name, seq)
			}
			// Prefix-free invariant: a terminal binding must not be a
			// strict prefix of another terminal binding.
			if existing.seq.HasPrefix(seq) || seq.HasPrefix(existing.seq) {
				return nil, fmt.Errorf("layer %q: binding %q conflicts with prefix %q",
					name, longer(seq, existing.seq), shorter(seq, existing.seq))
			}
		}

		l.bindings = append(l.bindings, parsedBinding{seq: seq, cmd: cmd})
		if seq.Len() > l.maxLen {
			l.maxLen = seq.Len()
		}
	}

	return l, nil
}

// MustLayer builds a layer and panics on configuration errors. Intended
// for the builtin default layers.
func MustLayer(name string, bindings []Binding) *Layer {
	l, err := NewLayer(name, bindings)
	if err != nil {
		panic(err)
	}
	return l
}

// Name returns the layer identifier.
func (l *Layer) Name() string {
	return l.name
}

// Len returns the number of bindings in the layer.
func (l *Layer) Len() int {
	return len(l.bindings)
}

// classify compares a pending sequence against the layer's bindings.
// An exact match returns the bound command. A strict-prefix match means
// the layer is waiting for more keys.
func (l *Layer) classify(seq *key.Sequence) (command.Command, match) {
	for _, b := range l.bindings {
		if b.seq.Equals(seq) {
			return b.cmd, matchExact
		}
	}
	for _, b := range l.bindings {
		if b.seq.Len() > seq.Len() && b.seq.HasPrefix(seq) {
			return command.Command{}, matchPrefix
		}
	}
	return command.Command{}, matchNone
}

func longer(a, b *key.Sequence) *key.Sequence {
	if a.Len() >= b.Len() {
		return a
	}
	return b
}

func shorter(a, b *key.Sequence) *key.Sequence {
	if a.Len() < b.Len() {
		return a
	}
	return b
}
