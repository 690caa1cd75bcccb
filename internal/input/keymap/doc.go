// Package keymap implements the layered, chord-capable key binding model
// and the resolver that turns key events into editor commands.
//
// A Keymap is an immutable ordered list of Layers, highest precedence
// first. Layers are validated at construction: duplicate sequences and
// terminal bindings that prefix other terminal bindings are configuration
// errors. The Resolver holds the only mutable state, a pending prefix
// buffer owned by the first layer that matched it as a prefix.
package keymap
