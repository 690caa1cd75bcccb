package keymap

import (
	"github.com/smash-editor/smash/internal/command"
	"github.com/smash-editor/smash/internal/input/key"
)

// Keymap is an immutable ordered list of layers, highest precedence first.
// Resolution searches layers in order; the first layer that contains a
// pending prefix owns it (see Resolver).
type Keymap struct {
	layers []*Layer
	maxLen int
}

// New creates a keymap from layers in precedence order.
func New(layers ...*Layer) *Keymap {
	km := &Keymap{layers: layers}
	for _, l := range layers {
		if l.maxLen > km.maxLen {
			km.maxLen = l.maxLen
		}
	}
	return km
}

// LayerCount returns the number of layers.
func (km *Keymap) LayerCount() int {
	return len(km.layers)
}

// Layers returns the layers in precedence order.
func (km *Keymap) Layers() []*Layer {
	return km.layers
}

// MaxSequenceLen returns the length of the longest binding in any layer.
// It bounds the resolver's pending prefix buffer.
func (km *Keymap) MaxSequenceLen() int {
	return km.maxLen
}

// ResolveSequence looks up a complete sequence without touching resolver
// state. The first layer with an exact match wins.
func (km *Keymap) ResolveSequence(seq *key.Sequence) (command.Command, bool) {
	if seq == nil || seq.IsEmpty() {
		return command.Command{}, false
	}
	for _, l := range km.layers {
		if cmd, m := l.classify(seq); m == matchExact {
			return cmd, true
		}
	}
	return command.Command{}, false
}
