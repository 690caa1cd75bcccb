// Package key defines the key event model used throughout the editor:
// keys, modifier sets, events, multi-key sequences, and the notation
// parser for binding specifications such as "C-x C-s" or "Ctrl+S".
package key
