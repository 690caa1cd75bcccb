package keymap

import (
	"github.com/smash-editor/smash/internal/command"
	"github.com/smash-editor/smash/internal/input/key"
)

// VerdictKind classifies the outcome of feeding one event to the resolver.
type VerdictKind int

const (
	// VerdictCommand means the pending sequence completed a binding.
	VerdictCommand VerdictKind = iota

	// VerdictWaiting means the pending sequence is a strict prefix of at
	// least one binding; more keys are needed.
	VerdictWaiting

	// VerdictUnbound means the sequence matches nothing; the events were
	// consumed and the buffer cleared.
	VerdictUnbound
)

// String returns the verdict kind name.
func (k VerdictKind) String() string {
	switch k {
	case VerdictCommand:
		return "command"
	case VerdictWaiting:
		return "waiting"
	case VerdictUnbound:
		return "unbound"
	default:
		return "unknown"
	}
}

// Verdict is the result of resolving one key event. Command is meaningful
// only when Kind is VerdictCommand.
type Verdict struct {
	Kind    VerdictKind
	Command command.Command
}

// Resolver turns a stream of key events into commands under a layered,
// chord-capable keymap. It is a pure state machine: the only mutable
// state is the pending prefix buffer and the identity of the layer that
// owns it.
//
// Resolution rules:
//   - Layers are searched in precedence order. An exact match in layer i
//     wins regardless of lower layers.
//   - The first layer for which the pending sequence is a strict prefix
//     owns the chord; lower layers are never consulted for extensions of
//     that prefix, and a failed extension yields Unbound rather than
//     retrying the stray key elsewhere.
//   - A modifier-less printable character that matches nothing while the
//     buffer is empty resolves to InsertChar.
type Resolver struct {
	keymap  *Keymap
	pending *key.Sequence
	owner   int // index of the owning layer; -1 when idle
}

// NewResolver creates a resolver over an immutable keymap.
func NewResolver(km *Keymap) *Resolver {
	return &Resolver{
		keymap:  km,
		pending: key.NewSequence(),
		owner:   -1,
	}
}

// Keymap returns the keymap the resolver reads from.
func (r *Resolver) Keymap() *Keymap {
	return r.keymap
}

// Pending returns the pending prefix, e.g. "C-x", for status display.
func (r *Resolver) Pending() string {
	return r.pending.String()
}

// Reset clears the pending prefix buffer.
func (r *Resolver) Reset() {
	r.pending.Clear()
	r.owner = -1
}

// Resolve consumes one key event and returns a verdict. Every event maps
// to exactly one outcome; there are no error conditions at runtime.
func (r *Resolver) Resolve(event key.Event) Verdict {
	r.pending.Add(event)

	if r.owner >= 0 {
		return r.resolveChord()
	}
	return r.resolveIdle(event)
}

// resolveIdle classifies a fresh sequence against all layers in order.
func (r *Resolver) resolveIdle(event key.Event) Verdict {
	for i, layer := range r.keymap.layers {
		cmd, m := layer.classify(r.pending)
		switch m {
		case matchExact:
			r.Reset()
			return Verdict{Kind: VerdictCommand, Command: cmd}
		case matchPrefix:
			r.owner = i
			return Verdict{Kind: VerdictWaiting}
		}
	}

	// Implicit binding: a plain printable character with an empty prior
	// buffer inserts itself.
	if r.pending.Len() == 1 && event.IsPlainRune() {
		r.Reset()
		return Verdict{Kind: VerdictCommand, Command: command.Insert(event.Rune)}
	}

	r.Reset()
	return Verdict{Kind: VerdictUnbound}
}

// resolveChord extends a pending chord within the owning layer only.
func (r *Resolver) resolveChord() Verdict {
	layer := r.keymap.layers[r.owner]
	cmd, m := layer.classify(r.pending)
	switch m {
	case matchExact:
		r.Reset()
		return Verdict{Kind: VerdictCommand, Command: cmd}
	case matchPrefix:
		return Verdict{Kind: VerdictWaiting}
	default:
		// The stray event is consumed, not retried against other layers.
		r.Reset()
		return Verdict{Kind: VerdictUnbound}
	}
}
