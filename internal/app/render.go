package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/smash-editor/smash/internal/lsp"
)

// termPaneRows is the height of the embedded terminal pane.
const termPaneRows = 10

// render paints the whole screen: editor views, the optional terminal
// pane, and the status line.
func (app *Application) render() {
	app.backend.Clear()
	_, rows := app.backend.Size()
	if rows < 2 {
		app.backend.Show()
		return
	}

	for i := range app.views {
		app.renderView(i, rows)
	}
	if app.termVisible {
		app.renderTerminal(rows)
	}
	app.renderStatus(rows - 1)
	app.backend.Show()
}

// editorRows returns the rows available to editor views, above the
// terminal pane and the status line.
func (app *Application) editorRows(rows int) int {
	h := rows - 1
	if app.termVisible {
		h -= termPaneRows
	}
	if h < 1 {
		h = 1
	}
	return h
}

// viewRegion computes the screen rectangle of view i: origin, and its
// width and height. Views share a single split axis evenly.
func (app *Application) viewRegion(i, rows int) (x, y, h int) {
	cols, _ := app.backend.Size()
	total := app.editorRows(rows)
	n := len(app.views)

	if app.vertical {
		w := cols / n
		return i * w, 0, total
	}
	h = total / n
	if h < 1 {
		h = 1
	}
	return 0, i * h, h
}

// viewWidth returns the column span of one view.
func (app *Application) viewWidth() int {
	cols, _ := app.backend.Size()
	if app.vertical {
		return cols / len(app.views)
	}
	return cols
}

// renderView draws one document viewport, scrolling to keep the cursor
// visible, and places the hardware cursor for the focused view.
func (app *Application) renderView(i, rows int) {
	v := app.views[i]
	x, y, h := app.viewRegion(i, rows)
	w := app.viewWidth()
	if h < 1 || w < 1 {
		return
	}

	line, col := v.doc.Cursor()
	if line < v.topLine {
		v.topLine = line
	}
	if line >= v.topLine+h {
		v.topLine = line - h + 1
	}

	style := tcell.StyleDefault
	errStyle := style.Foreground(tcell.ColorRed)
	for row := 0; row < h; row++ {
		idx := v.topLine + row
		if idx >= v.doc.LineCount() {
			app.backend.DrawText(x, y+row, "~", style.Foreground(tcell.ColorGray))
			continue
		}
		text := v.doc.Line(idx)
		if len(text) > w {
			text = text[:w]
		}
		app.backend.DrawText(x, y+row, text, style)
		if marker := diagnosticMarker(v.doc, idx); marker != "" && len(text) < w {
			app.backend.DrawText(x+w-1, y+row, marker, errStyle)
		}
	}

	if i == app.focus && !app.termFocused {
		app.backend.ShowCursor(x+col, y+(line-v.topLine))
	}
}

// diagnosticMarker returns a gutter marker when line idx carries a
// diagnostic.
func diagnosticMarker(doc *Document, idx int) string {
	for _, d := range doc.Diagnostics() {
		if d.Range.Start.Line == idx {
			if d.Severity == lsp.SeverityError {
				return "E"
			}
			return "W"
		}
	}
	return ""
}

// renderTerminal draws the shell pane above the status line.
func (app *Application) renderTerminal(rows int) {
	cols, _ := app.backend.Size()
	top := rows - 1 - termPaneRows
	if top < 0 {
		top = 0
	}

	style := tcell.StyleDefault
	app.backend.DrawText(0, top, strings.Repeat("-", cols), style.Foreground(tcell.ColorGray))

	lines := app.terminalLines(termPaneRows - 1)
	for i, text := range lines {
		if len(text) > cols {
			text = text[len(text)-cols:]
		}
		app.backend.DrawText(0, top+1+i, text, style)
	}
	if app.termFocused {
		app.backend.HideCursor()
	}
}

// terminalLines returns the last n lines of shell output with control
// sequences stripped.
func (app *Application) terminalLines(n int) []string {
	app.termMu.Lock()
	buf := string(app.termOutput)
	app.termMu.Unlock()

	lines := strings.Split(strings.ReplaceAll(buf, "\r\n", "\n"), "\n")
	out := make([]string, 0, n)
	for _, l := range lines {
		out = append(out, stripControl(l))
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// stripControl drops ANSI escape sequences and control bytes. The pane
// shows plain text only; full emulation is out of scope.
func stripControl(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
		case r == 0x1b:
			inEscape = true
		case r >= 0x20 || r == '\t':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// renderStatus draws the bottom status line: file name, dirty marker,
// cursor position, and the transient message or pending chord.
func (app *Application) renderStatus(row int) {
	cols, _ := app.backend.Size()
	doc := app.ActiveDocument()

	name := "[scratch]"
	if doc.Path != "" {
		name = filepath.Base(doc.Path)
	}
	dirty := ""
	if doc.Modified() {
		dirty = " *"
	}
	line, col := doc.Cursor()
	left := fmt.Sprintf("%s%s  %d:%d", name, dirty, line+1, col+1)

	msg := app.status
	if pending := app.resolver.Pending(); pending != "" {
		msg = pending + "-"
	}
	if msg != "" {
		left += "  " + msg
	}

	if len(left) > cols {
		left = left[:cols]
	}
	app.backend.DrawText(0, row, left, tcell.StyleDefault.Reverse(true))
}
