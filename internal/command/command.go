// Package command defines the closed set of editor intents that key
// bindings resolve to. Commands are pure values; execution is the
// application's concern.
package command

import (
	"errors"
	"fmt"
)

// Kind identifies an editor command.
type Kind int

const (
	// Noop is a valid terminal command that does nothing. It is distinct
	// from an unbound key.
	Noop Kind = iota

	// Movement
	CursorLeft
	CursorRight
	CursorUp
	CursorDown
	WordForward
	WordBackward
	LineStart
	LineEnd
	BufferStart
	BufferEnd
	PageUp
	PageDown

	// Selection
	SelectLeft
	SelectRight
	SelectUp
	SelectDown
	SelectAll
	SelectNone

	// Buffer edits
	InsertChar
	InsertNewline
	InsertTab
	DeleteBackward
	DeleteForward
	DeleteLine
	Undo
	Redo

	// File operations
	Save
	SaveAll
	OpenFile
	CloseFile

	// Pane operations
	SplitHorizontal
	SplitVertical
	FocusNextPane
	FocusPrevPane
	ClosePane
	ToggleTerminal

	// Search
	SearchForward
	SearchBackward
	SearchNext
	SearchPrev

	// Language server actions
	LSPHover
	LSPDefinition
	LSPReferences
	LSPCompletion
	LSPFormat
	LSPCodeAction

	// Lifecycle
	Quit
	ForceQuit
)

// Command is a single editor intent. Rune carries the character for
// InsertChar and is zero otherwise.
type Command struct {
	Kind Kind
	Rune rune
}

// New creates a command with no argument.
func New(kind Kind) Command {
	return Command{Kind: kind}
}

// Insert creates an InsertChar command for r.
func Insert(r rune) Command {
	return Command{Kind: InsertChar, Rune: r}
}

// IsNoop returns true for the Noop command.
func (c Command) IsNoop() bool {
	return c.Kind == Noop
}

// String returns the command's configuration name, e.g. "cursor.left".
func (c Command) String() string {
	if c.Kind == InsertChar && c.Rune != 0 {
		return fmt.Sprintf("buffer.insertChar(%q)", c.Rune)
	}
	if name, ok := kindNames[c.Kind]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c.Kind))
}

// kindNames maps kinds to the dotted names used in keymap configuration.
var kindNames = map[Kind]string{
	Noop:            "noop",
	CursorLeft:      "cursor.left",
	CursorRight:     "cursor.right",
	CursorUp:        "cursor.up",
	CursorDown:      "cursor.down",
	WordForward:     "cursor.wordForward",
	WordBackward:    "cursor.wordBackward",
	LineStart:       "cursor.lineStart",
	LineEnd:         "cursor.lineEnd",
	BufferStart:     "cursor.bufferStart",
	BufferEnd:       "cursor.bufferEnd",
	PageUp:          "cursor.pageUp",
	PageDown:        "cursor.pageDown",
	SelectLeft:      "select.left",
	SelectRight:     "select.right",
	SelectUp:        "select.up",
	SelectDown:      "select.down",
	SelectAll:       "select.all",
	SelectNone:      "select.none",
	InsertChar:      "buffer.insertChar",
	InsertNewline:   "buffer.insertNewline",
	InsertTab:       "buffer.insertTab",
	DeleteBackward:  "buffer.deleteBackward",
	DeleteForward:   "buffer.deleteForward",
	DeleteLine:      "buffer.deleteLine",
	Undo:            "buffer.undo",
	Redo:            "buffer.redo",
	Save:            "file.save",
	SaveAll:         "file.saveAll",
	OpenFile:        "file.open",
	CloseFile:       "file.close",
	SplitHorizontal: "pane.splitHorizontal",
	SplitVertical:   "pane.splitVertical",
	FocusNextPane:   "pane.focusNext",
	FocusPrevPane:   "pane.focusPrev",
	ClosePane:       "pane.close",
	ToggleTerminal:  "pane.toggleTerminal",
	SearchForward:   "search.forward",
	SearchBackward:  "search.backward",
	SearchNext:      "search.next",
	SearchPrev:      "search.prev",
	LSPHover:        "lsp.hover",
	LSPDefinition:   "lsp.definition",
	LSPReferences:   "lsp.references",
	LSPCompletion:   "lsp.completion",
	LSPFormat:       "lsp.format",
	LSPCodeAction:   "lsp.codeAction",
	Quit:            "editor.quit",
	ForceQuit:       "editor.forceQuit",
}

// namesToKind is the inverse of kindNames, built at init.
var namesToKind = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// ErrUnknownCommand is returned when a configured command name does not
// exist.
var ErrUnknownCommand = errors.New("unknown command")

// Parse resolves a dotted command name from keymap configuration.
func Parse(name string) (Command, error) {
	kind, ok := namesToKind[name]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return Command{Kind: kind}, nil
}
