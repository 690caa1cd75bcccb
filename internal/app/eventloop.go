package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smash-editor/smash/internal/command"
	"github.com/smash-editor/smash/internal/input/key"
	"github.com/smash-editor/smash/internal/input/keymap"
	"github.com/smash-editor/smash/internal/lsp"
	"github.com/smash-editor/smash/internal/renderer/backend"
	"github.com/smash-editor/smash/internal/terminal"
)

// handleBackendEvent routes one backend event. Returns ErrQuit when the
// application should exit.
func (app *Application) handleBackendEvent(ctx context.Context, ev backend.Event) error {
	switch ev.Type {
	case backend.EventKey:
		return app.handleKey(ctx, ev.Key)
	case backend.EventResize:
		app.resizeTerminal(ev.Cols)
		return nil
	case backend.EventInterrupt:
		// Interrupts request a repaint; the config watcher also uses
		// them to hand the reload to the run loop.
		if app.configDirty.Swap(false) {
			app.reloadConfig()
		}
		return nil
	default:
		return nil
	}
}

// handleKey feeds one key event to the resolver, or to the terminal
// pane when it has focus.
func (app *Application) handleKey(ctx context.Context, ev key.Event) error {
	if app.termFocused && app.termPane != nil {
		return app.forwardToTerminal(ev)
	}

	pending := app.resolver.Pending()
	verdict := app.resolver.Resolve(ev)
	switch verdict.Kind {
	case keymap.VerdictCommand:
		return app.execute(ctx, verdict.Command)
	case keymap.VerdictWaiting:
		app.status = app.resolver.Pending() + "-"
		return nil
	default:
		seq := ev.String()
		if pending != "" {
			seq = pending + " " + seq
		}
		app.status = seq + " is undefined"
		return nil
	}
}

// forwardToTerminal translates a key event to shell input bytes. The
// terminal toggle chord keeps working while the pane has focus.
func (app *Application) forwardToTerminal(ev key.Event) error {
	if ev.Key == key.KeyRune && ev.Rune == 't' && ev.Modifiers == key.ModCtrl {
		app.toggleTerminal()
		return nil
	}

	var data []byte
	switch ev.Key {
	case key.KeyRune:
		r := ev.Rune
		if ev.Modifiers.Has(key.ModCtrl) && r >= 'a' && r <= 'z' {
			data = []byte{byte(r - 'a' + 1)}
		} else {
			data = []byte(string(r))
		}
	case key.KeySpace:
		data = []byte{' '}
	case key.KeyEnter:
		data = []byte{'\r'}
	case key.KeyTab:
		data = []byte{'\t'}
	case key.KeyBackspace:
		data = []byte{0x7f}
	case key.KeyEscape:
		data = []byte{0x1b}
	default:
		return nil
	}

	if err := app.termPane.Write(data); err != nil {
		app.status = err.Error()
	}
	return nil
}

// execute performs one resolved command against the editor state.
func (app *Application) execute(ctx context.Context, cmd command.Command) error {
	app.status = ""
	doc := app.ActiveDocument()

	switch cmd.Kind {
	case command.Noop:

	// Movement clears any selection.
	case command.CursorLeft:
		doc.ClearSelection()
		doc.MoveLeft()
	case command.CursorRight:
		doc.ClearSelection()
		doc.MoveRight()
	case command.CursorUp:
		doc.ClearSelection()
		doc.MoveUp()
	case command.CursorDown:
		doc.ClearSelection()
		doc.MoveDown()
	case command.WordForward:
		doc.ClearSelection()
		doc.MoveWordForward()
	case command.WordBackward:
		doc.ClearSelection()
		doc.MoveWordBackward()
	case command.LineStart:
		doc.ClearSelection()
		doc.MoveLineStart()
	case command.LineEnd:
		doc.ClearSelection()
		doc.MoveLineEnd()
	case command.BufferStart:
		doc.ClearSelection()
		doc.MoveBufferStart()
	case command.BufferEnd:
		doc.ClearSelection()
		doc.MoveBufferEnd()
	case command.PageUp:
		doc.ClearSelection()
		doc.MovePage(-app.pageSize())
	case command.PageDown:
		doc.ClearSelection()
		doc.MovePage(app.pageSize())

	// Selection extends from an anchor pinned at first use.
	case command.SelectLeft:
		doc.ensureAnchor()
		doc.MoveLeft()
	case command.SelectRight:
		doc.ensureAnchor()
		doc.MoveRight()
	case command.SelectUp:
		doc.ensureAnchor()
		doc.MoveUp()
	case command.SelectDown:
		doc.ensureAnchor()
		doc.MoveDown()
	case command.SelectAll:
		doc.SelectAll()
	case command.SelectNone:
		doc.ClearSelection()

	case command.InsertChar:
		app.edit(ctx, doc, func() bool { return doc.InsertRune(cmd.Rune) })
	case command.InsertNewline:
		app.edit(ctx, doc, doc.InsertNewline)
	case command.InsertTab:
		app.edit(ctx, doc, func() bool {
			return doc.InsertTab(app.cfg.Editor.TabSize, app.cfg.Editor.InsertSpaces)
		})
	case command.DeleteBackward:
		app.edit(ctx, doc, doc.DeleteBackward)
	case command.DeleteForward:
		app.edit(ctx, doc, doc.DeleteForward)
	case command.DeleteLine:
		app.edit(ctx, doc, doc.DeleteLine)
	case command.Undo:
		app.edit(ctx, doc, doc.Undo)
	case command.Redo:
		app.edit(ctx, doc, doc.Redo)

	case command.Save:
		app.saveDocument(ctx, doc)
	case command.SaveAll:
		for _, d := range app.docs.All() {
			if d.Modified() {
				app.saveDocument(ctx, d)
			}
		}
	case command.OpenFile:
		app.cycleDocument()
	case command.CloseFile:
		app.closeDocument(ctx, doc)

	case command.SplitHorizontal:
		app.split(false)
	case command.SplitVertical:
		app.split(true)
	case command.FocusNextPane:
		app.focus = (app.focus + 1) % len(app.views)
	case command.FocusPrevPane:
		app.focus = (app.focus - 1 + len(app.views)) % len(app.views)
	case command.ClosePane:
		app.closePane()
	case command.ToggleTerminal:
		app.toggleTerminal()

	case command.SearchForward:
		app.search(doc, true, true)
	case command.SearchBackward:
		app.search(doc, false, true)
	case command.SearchNext:
		app.search(doc, app.lastForward, false)
	case command.SearchPrev:
		app.search(doc, !app.lastForward, false)

	case command.LSPHover:
		app.sendLSP(ctx, lsp.HoverRequest{URI: doc.URI, Pos: cursorPosition(doc)})
	case command.LSPDefinition:
		app.sendLSP(ctx, lsp.DefinitionRequest{URI: doc.URI, Pos: cursorPosition(doc)})
	case command.LSPReferences:
		app.sendLSP(ctx, lsp.ReferencesRequest{URI: doc.URI, Pos: cursorPosition(doc), IncludeDeclaration: true})
	case command.LSPCompletion:
		app.sendLSP(ctx, lsp.CompletionRequest{URI: doc.URI, Pos: cursorPosition(doc)})
	case command.LSPFormat:
		app.sendLSP(ctx, lsp.FormatRequest{
			URI: doc.URI,
			Options: lsp.FormattingOptions{
				TabSize:      app.cfg.Editor.TabSize,
				InsertSpaces: app.cfg.Editor.InsertSpaces,
			},
		})
	case command.LSPCodeAction:
		line, _ := doc.Cursor()
		app.sendLSP(ctx, lsp.CodeActionRequest{
			URI: doc.URI,
			Range: lsp.Range{
				Start: lsp.Position{Line: line},
				End:   lsp.Position{Line: line, Character: len([]rune(doc.Line(line)))},
			},
		})

	case command.Quit:
		if name, dirty := app.anyModified(); dirty {
			app.status = fmt.Sprintf("%s has unsaved changes", name)
			return nil
		}
		return ErrQuit
	case command.ForceQuit:
		return ErrQuit
	}
	return nil
}

// cursorPosition converts the document cursor to an LSP position.
func cursorPosition(doc *Document) lsp.Position {
	line, col := doc.Cursor()
	return lsp.Position{Line: line, Character: col}
}

// pageSize returns the visible line count of the focused view.
func (app *Application) pageSize() int {
	_, rows := app.backend.Size()
	_, _, h := app.viewRegion(app.focus, rows)
	if h < 1 {
		return 1
	}
	return h
}

// edit runs a document mutation and syncs the new content to the
// language server if anything changed.
func (app *Application) edit(ctx context.Context, doc *Document, fn func() bool) {
	if doc.ReadOnly {
		app.status = "buffer is read-only"
		return
	}
	if !fn() {
		return
	}
	if doc.URI != "" {
		app.sendLSP(ctx, lsp.DidChange{URI: doc.URI, Version: doc.Version(), Text: doc.Text()})
	}
}

// saveDocument writes doc to disk and notifies the server.
func (app *Application) saveDocument(ctx context.Context, doc *Document) {
	if doc.Path == "" {
		app.status = "buffer has no file name"
		return
	}
	if err := os.WriteFile(doc.Path, []byte(doc.Text()+"\n"), 0o644); err != nil {
		app.status = fmt.Sprintf("save %s: %v", filepath.Base(doc.Path), err)
		return
	}
	doc.markSaved()
	app.sendLSP(ctx, lsp.DidSave{URI: doc.URI})
	app.status = fmt.Sprintf("wrote %s", doc.Path)
}

// cycleDocument switches the focused view to the next open document.
func (app *Application) cycleDocument() {
	all := app.docs.All()
	if len(all) < 2 {
		app.status = "no other buffers"
		return
	}
	cur := app.ActiveDocument()
	for i, d := range all {
		if d == cur {
			app.views[app.focus].doc = all[(i+1)%len(all)]
			return
		}
	}
	app.views[app.focus].doc = all[0]
}

// closeDocument closes doc, dropping unsaved changes. Views showing it
// fall back to a scratch buffer.
func (app *Application) closeDocument(ctx context.Context, doc *Document) {
	if doc.Path == "" {
		return
	}
	if doc.URI != "" {
		app.sendLSP(ctx, lsp.DidClose{URI: doc.URI})
	}
	app.docs.Close(doc)

	replacement := newScratch()
	if all := app.docs.All(); len(all) > 0 {
		replacement = all[0]
	}
	for _, v := range app.views {
		if v.doc == doc {
			v.doc = replacement
			v.topLine = 0
		}
	}
}

// split duplicates the focused view. The layout keeps a single axis;
// the most recent split decides it.
func (app *Application) split(vertical bool) {
	app.vertical = vertical
	v := &view{doc: app.ActiveDocument()}
	app.views = append(app.views, v)
	app.focus = len(app.views) - 1
}

// closePane removes the focused view. The last view never closes.
func (app *Application) closePane() {
	if len(app.views) == 1 {
		app.status = ErrLastPane.Error()
		return
	}
	app.views = append(app.views[:app.focus], app.views[app.focus+1:]...)
	if app.focus >= len(app.views) {
		app.focus = len(app.views) - 1
	}
}

// resizeTerminal keeps the shell child in step with the window width.
// The pane's height is fixed; only the column count follows the screen.
func (app *Application) resizeTerminal(cols int) {
	if app.termPane == nil || !app.termPane.IsRunning() {
		return
	}
	size := terminal.Size{Cols: cols, Rows: termPaneRows - 1}
	if !size.Valid() {
		return
	}
	if err := app.termPane.Resize(size); err != nil {
		app.status = err.Error()
	}
}

// toggleTerminal shows or hides the embedded terminal pane, creating
// it on first use. A visible terminal takes key focus.
func (app *Application) toggleTerminal() {
	if app.termVisible {
		app.termVisible = false
		app.termFocused = false
		return
	}

	if app.termPane == nil || !app.termPane.IsRunning() {
		opts := app.cfg.PaneOptions()
		opts.Name = "shell"
		opts.WorkDir = app.opts.WorkspacePath
		opts.OnOutput = func(data []byte) {
			app.appendTermOutput(data)
			app.backend.Interrupt()
		}
		opts.OnExit = func(code int) {
			app.backend.Interrupt()
		}
		pane, err := app.terminals.Create(opts)
		if err != nil {
			if errors.Is(err, terminal.ErrShellNotFound) {
				app.status = "shell not found"
			} else {
				app.status = err.Error()
			}
			return
		}
		app.termPane = pane
	}

	app.termVisible = true
	app.termFocused = true
}

// appendTermOutput buffers shell output for rendering, bounded so a
// chatty process cannot grow memory without limit.
func (app *Application) appendTermOutput(data []byte) {
	const maxTermBuffer = 64 * 1024
	app.termMu.Lock()
	defer app.termMu.Unlock()
	app.termOutput = append(app.termOutput, data...)
	if over := len(app.termOutput) - maxTermBuffer; over > 0 {
		app.termOutput = app.termOutput[over:]
	}
}

// search runs a document search. A fresh search seeds the query from
// the word under the cursor.
func (app *Application) search(doc *Document, forward, fresh bool) {
	if fresh {
		if w := doc.WordAt(); w != "" {
			app.lastQuery = w
		}
		app.lastForward = forward
	}
	if app.lastQuery == "" {
		app.status = "nothing to search for"
		return
	}
	if doc.Search(app.lastQuery, forward) {
		app.status = fmt.Sprintf("match: %s", app.lastQuery)
	} else {
		app.status = fmt.Sprintf("no match: %s", app.lastQuery)
	}
}

// anyModified returns the name of the first modified document.
func (app *Application) anyModified() (string, bool) {
	for _, d := range app.docs.All() {
		if d.Modified() {
			name := d.Path
			if name == "" {
				name = "scratch"
			}
			return filepath.Base(name), true
		}
	}
	if d := app.ActiveDocument(); d.Modified() {
		return "scratch", true
	}
	return "", false
}

// handleSessionEvent surfaces language server events in the UI.
func (app *Application) handleSessionEvent(ev lsp.Event) {
	switch e := ev.(type) {
	case lsp.ServerStarted:
		app.status = fmt.Sprintf("%s language server running", e.LanguageID)

	case lsp.HoverResult:
		if e.Text == "" {
			app.status = "no hover information"
		} else {
			app.status = firstLine(e.Text)
		}

	case lsp.DefinitionResult:
		app.jumpTo(e.Locations, "definition")

	case lsp.ReferencesResult:
		app.status = fmt.Sprintf("%d references", len(e.Locations))

	case lsp.CompletionResult:
		if len(e.Items) == 0 {
			app.status = "no completions"
		} else {
			app.status = fmt.Sprintf("%d completions: %s", len(e.Items), firstLabel(e.Items))
		}

	case lsp.FormatResult:
		app.applyFormat(e)

	case lsp.CodeActionResult:
		app.status = fmt.Sprintf("%d code actions", len(e.Actions))

	case lsp.DiagnosticsUpdated:
		if doc := app.docs.Get(e.URI); doc != nil {
			doc.setDiagnostics(e.Version, e.Diagnostics)
		}

	case lsp.ErrorEvent:
		app.status = e.Message

	case lsp.InfoEvent:
		app.status = e.Message
	}
}

// jumpTo moves the cursor to the first location if its document is
// open, and reports the target either way.
func (app *Application) jumpTo(locs []lsp.Location, what string) {
	if len(locs) == 0 {
		app.status = "no " + what + " found"
		return
	}
	loc := locs[0]
	target := fmt.Sprintf("%s:%d", filepath.Base(lsp.URIToFilePath(loc.URI)), loc.Range.Start.Line+1)
	if doc := app.docs.Get(loc.URI); doc != nil {
		app.views[app.focus].doc = doc
		doc.cur = position{line: loc.Range.Start.Line, col: loc.Range.Start.Character}
		doc.clampLine()
		doc.clampCol()
	}
	app.status = target
}

// applyFormat replaces the document content with a formatted whole-file
// edit. Partial edit lists are reported but not applied.
func (app *Application) applyFormat(e lsp.FormatResult) {
	doc := app.docs.Get(e.URI)
	if doc == nil || len(e.Edits) == 0 {
		app.status = "nothing to format"
		return
	}
	if len(e.Edits) == 1 && e.Edits[0].Range.Start == (lsp.Position{}) &&
		e.Edits[0].Range.End.Line >= doc.LineCount()-1 {
		doc.pushUndo()
		doc.lines = splitLines(e.Edits[0].NewText)
		doc.clampLine()
		doc.clampCol()
		doc.edited()
		app.status = "formatted"
		return
	}
	app.status = fmt.Sprintf("%d format edits (apply unsupported)", len(e.Edits))
}

// firstLine truncates text at the first newline.
func firstLine(text string) string {
	for i, r := range text {
		if r == '\n' {
			return text[:i]
		}
	}
	return text
}

// firstLabel returns the first completion label for the status line.
func firstLabel(items []lsp.CompletionItem) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Label
}
