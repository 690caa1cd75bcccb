package keymap

// Default returns the builtin keymap: an emacs-style chord layer over a
// global layer of special-key bindings. Configured layers stack above
// these.
func Default() *Keymap {
	return New(DefaultEmacsLayer(), DefaultGlobalLayer())
}

// DefaultEmacsLayer returns the emacs-style chord bindings.
func DefaultEmacsLayer() *Layer {
	return MustLayer("emacs", []Binding{
		// Chords under the C-x prefix
		{Keys: "C-x C-s", Command: "file.save", Description: "Save file"},
		{Keys: "C-x C-c", Command: "editor.quit", Description: "Quit"},
		{Keys: "C-x C-f", Command: "file.open", Description: "Open file"},
		{Keys: "C-x k", Command: "file.close", Description: "Close file"},
		{Keys: "C-x 2", Command: "pane.splitHorizontal", Description: "Split below"},
		{Keys: "C-x 3", Command: "pane.splitVertical", Description: "Split right"},
		{Keys: "C-x o", Command: "pane.focusNext", Description: "Next pane"},
		{Keys: "C-x 0", Command: "pane.close", Description: "Close pane"},
		{Keys: "C-x u", Command: "buffer.undo", Description: "Undo"},

		// Movement
		{Keys: "C-f", Command: "cursor.right", Description: "Move right"},
		{Keys: "C-b", Command: "cursor.left", Description: "Move left"},
		{Keys: "C-n", Command: "cursor.down", Description: "Move down"},
		{Keys: "C-p", Command: "cursor.up", Description: "Move up"},
		{Keys: "C-a", Command: "cursor.lineStart", Description: "Line start"},
		{Keys: "C-e", Command: "cursor.lineEnd", Description: "Line end"},
		{Keys: "A-f", Command: "cursor.wordForward", Description: "Word forward"},
		{Keys: "A-b", Command: "cursor.wordBackward", Description: "Word backward"},
		{Keys: "C-v", Command: "cursor.pageDown", Description: "Page down"},
		{Keys: "A-v", Command: "cursor.pageUp", Description: "Page up"},

		// Editing
		{Keys: "C-d", Command: "buffer.deleteForward", Description: "Delete char"},
		{Keys: "C-k", Command: "buffer.deleteLine", Description: "Kill line"},
		{Keys: "C-_", Command: "buffer.undo", Description: "Undo"},

		// Search
		{Keys: "C-s", Command: "search.forward", Description: "Search forward"},
		{Keys: "C-r", Command: "search.backward", Description: "Search backward"},

		// Language server
		{Keys: "A-h", Command: "lsp.hover", Description: "Hover"},
		{Keys: "A-d", Command: "lsp.definition", Description: "Go to definition"},
		{Keys: "A-r", Command: "lsp.references", Description: "Find references"},
		{Keys: "A-c", Command: "lsp.completion", Description: "Complete"},
		{Keys: "A-q", Command: "lsp.format", Description: "Format document"},
	})
}

// DefaultGlobalLayer returns the special-key bindings active everywhere.
func DefaultGlobalLayer() *Layer {
	return MustLayer("global", []Binding{
		{Keys: "Left", Command: "cursor.left"},
		{Keys: "Right", Command: "cursor.right"},
		{Keys: "Up", Command: "cursor.up"},
		{Keys: "Down", Command: "cursor.down"},
		{Keys: "Home", Command: "cursor.lineStart"},
		{Keys: "End", Command: "cursor.lineEnd"},
		{Keys: "PgUp", Command: "cursor.pageUp"},
		{Keys: "PgDn", Command: "cursor.pageDown"},
		{Keys: "Enter", Command: "buffer.insertNewline"},
		{Keys: "Tab", Command: "buffer.insertTab"},
		{Keys: "Backspace", Command: "buffer.deleteBackward"},
		{Keys: "Delete", Command: "buffer.deleteForward"},
		{Keys: "S-Left", Command: "select.left"},
		{Keys: "S-Right", Command: "select.right"},
		{Keys: "S-Up", Command: "select.up"},
		{Keys: "S-Down", Command: "select.down"},
		{Keys: "Esc", Command: "select.none"},
		{Keys: "F2", Command: "file.save"},
		{Keys: "F10", Command: "editor.quit"},
		{Keys: "C-z", Command: "buffer.undo"},
		{Keys: "C-y", Command: "buffer.redo"},
		{Keys: "C-q", Command: "editor.forceQuit"},
		{Keys: "C-t", Command: "pane.toggleTerminal"},
	})
}
