package app

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smash-editor/smash/internal/lsp"
)

// position is a line/column pair in rune coordinates.
type position struct {
	line, col int
}

// before reports whether p precedes q in document order.
func (p position) before(q position) bool {
	return p.line < q.line || (p.line == q.line && p.col < q.col)
}

// snapshot captures document content and cursor for undo.
type snapshot struct {
	lines []string
	cur   position
}

// Document is one open file buffer. Text is kept as plain lines; this
// editor does not carry a rope, the buffer exists to feed full-text
// sync to the language server and the screen.
type Document struct {
	Path       string
	URI        lsp.DocumentURI
	LanguageID string
	ReadOnly   bool

	lines    []string
	version  int
	modified bool

	cur     position
	anchor  *position
	topLine int

	undo []snapshot
	redo []snapshot

	diags        []lsp.Diagnostic
	diagsVersion int
}

// openDocument reads path into a new document. A missing file yields an
// empty unmodified buffer at that path.
func openDocument(path string, readOnly bool) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	lines := []string{""}
	data, err := os.ReadFile(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		lines = splitLines(string(data))
	}

	return &Document{
		Path:       abs,
		URI:        lsp.FilePathToURI(abs),
		LanguageID: languageIDForPath(abs),
		ReadOnly:   readOnly,
		lines:      lines,
		version:    1,
	}, nil
}

// splitLines breaks text into lines without trailing newline artifacts.
// An empty document is one empty line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// languageIDForPath maps a file extension to an LSP language id.
func languageIDForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".rs":
		return "rust"
	case ".py":
		return "python"
	case ".zig":
		return "zig"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc", ".hpp":
		return "cpp"
	case ".js":
		return "javascript"
	case ".ts":
		return "typescript"
	case ".md":
		return "markdown"
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "plaintext"
	}
}

// Text returns the full buffer content.
func (d *Document) Text() string {
	return strings.Join(d.lines, "\n")
}

// LineCount returns the number of lines.
func (d *Document) LineCount() int { return len(d.lines) }

// Line returns line i, or "" when out of range.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lines) {
		return ""
	}
	return d.lines[i]
}

// Version returns the document sync version.
func (d *Document) Version() int { return d.version }

// Modified reports whether the buffer differs from the file on disk.
func (d *Document) Modified() bool { return d.modified }

// Cursor returns the cursor position in rune coordinates.
func (d *Document) Cursor() (line, col int) { return d.cur.line, d.cur.col }

// Selection returns the ordered selection bounds, if any.
func (d *Document) Selection() (start, end position, ok bool) {
	if d.anchor == nil || *d.anchor == d.cur {
		return position{}, position{}, false
	}
	if d.anchor.before(d.cur) {
		return *d.anchor, d.cur, true
	}
	return d.cur, *d.anchor, true
}

// Diagnostics returns the latest published diagnostics.
func (d *Document) Diagnostics() []lsp.Diagnostic { return d.diags }

// setDiagnostics stores a published diagnostic set.
func (d *Document) setDiagnostics(version int, diags []lsp.Diagnostic) {
	d.diags = diags
	d.diagsVersion = version
}

// markSaved clears the modified flag after a successful write.
func (d *Document) markSaved() { d.modified = false }

// curLine returns the line under the cursor.
func (d *Document) curLine() []rune { return []rune(d.lines[d.cur.line]) }

// clampLine keeps the cursor line within the buffer.
func (d *Document) clampLine() {
	if d.cur.line > len(d.lines)-1 {
		d.cur.line = len(d.lines) - 1
	}
	if d.cur.line < 0 {
		d.cur.line = 0
	}
}

// clampCol keeps the column within the current line after vertical moves.
func (d *Document) clampCol() {
	if n := len(d.curLine()); d.cur.col > n {
		d.cur.col = n
	}
}

// pushUndo records the current state before a mutation.
func (d *Document) pushUndo() {
	d.undo = append(d.undo, d.snapshot())
	d.redo = nil
}

func (d *Document) snapshot() snapshot {
	lines := make([]string, len(d.lines))
	copy(lines, d.lines)
	return snapshot{lines: lines, cur: d.cur}
}

func (d *Document) restore(s snapshot) {
	d.lines = s.lines
	d.cur = s.cur
	d.anchor = nil
	d.version++
	d.modified = true
}

// edited finalizes a mutation: versions advance monotonically and the
// selection is dropped.
func (d *Document) edited() {
	d.version++
	d.modified = true
	d.anchor = nil
}

// InsertRune inserts r at the cursor. Returns false for read-only buffers.
func (d *Document) InsertRune(r rune) bool {
	if d.ReadOnly {
		return false
	}
	d.pushUndo()
	d.deleteSelection()
	line := d.curLine()
	out := make([]rune, 0, len(line)+1)
	out = append(out, line[:d.cur.col]...)
	out = append(out, r)
	out = append(out, line[d.cur.col:]...)
	d.lines[d.cur.line] = string(out)
	d.cur.col++
	d.edited()
	return true
}

// InsertNewline splits the current line at the cursor.
func (d *Document) InsertNewline() bool {
	if d.ReadOnly {
		return false
	}
	d.pushUndo()
	d.deleteSelection()
	line := d.curLine()
	head, tail := string(line[:d.cur.col]), string(line[d.cur.col:])
	d.lines[d.cur.line] = head
	rest := make([]string, 0, len(d.lines)+1)
	rest = append(rest, d.lines[:d.cur.line+1]...)
	rest = append(rest, tail)
	rest = append(rest, d.lines[d.cur.line+1:]...)
	d.lines = rest
	d.cur.line++
	d.cur.col = 0
	d.edited()
	return true
}

// InsertTab inserts a tab or the configured number of spaces.
func (d *Document) InsertTab(tabSize int, spaces bool) bool {
	if d.ReadOnly {
		return false
	}
	if !spaces {
		return d.InsertRune('\t')
	}
	if tabSize < 1 {
		tabSize = 4
	}
	d.pushUndo()
	d.deleteSelection()
	line := d.curLine()
	pad := strings.Repeat(" ", tabSize)
	d.lines[d.cur.line] = string(line[:d.cur.col]) + pad + string(line[d.cur.col:])
	d.cur.col += tabSize
	d.edited()
	return true
}

// DeleteBackward removes the selection, or the rune before the cursor.
// Joins with the previous line at column zero.
func (d *Document) DeleteBackward() bool {
	if d.ReadOnly {
		return false
	}
	if _, _, ok := d.Selection(); ok {
		d.pushUndo()
		d.deleteSelection()
		d.edited()
		return true
	}
	if d.cur.col == 0 && d.cur.line == 0 {
		return false
	}
	d.pushUndo()
	if d.cur.col > 0 {
		line := d.curLine()
		d.lines[d.cur.line] = string(line[:d.cur.col-1]) + string(line[d.cur.col:])
		d.cur.col--
	} else {
		prev := []rune(d.lines[d.cur.line-1])
		d.lines[d.cur.line-1] = string(prev) + d.lines[d.cur.line]
		d.lines = append(d.lines[:d.cur.line], d.lines[d.cur.line+1:]...)
		d.cur.line--
		d.cur.col = len(prev)
	}
	d.edited()
	return true
}

// DeleteForward removes the selection, or the rune under the cursor.
// Joins with the next line at end of line.
func (d *Document) DeleteForward() bool {
	if d.ReadOnly {
		return false
	}
	if _, _, ok := d.Selection(); ok {
		d.pushUndo()
		d.deleteSelection()
		d.edited()
		return true
	}
	line := d.curLine()
	if d.cur.col == len(line) && d.cur.line == len(d.lines)-1 {
		return false
	}
	d.pushUndo()
	if d.cur.col < len(line) {
		d.lines[d.cur.line] = string(line[:d.cur.col]) + string(line[d.cur.col+1:])
	} else {
		d.lines[d.cur.line] = string(line) + d.lines[d.cur.line+1]
		d.lines = append(d.lines[:d.cur.line+1], d.lines[d.cur.line+2:]...)
	}
	d.edited()
	return true
}

// DeleteLine removes the current line entirely.
func (d *Document) DeleteLine() bool {
	if d.ReadOnly {
		return false
	}
	if len(d.lines) == 1 && d.lines[0] == "" {
		return false
	}
	d.pushUndo()
	if len(d.lines) == 1 {
		d.lines[0] = ""
	} else {
		d.lines = append(d.lines[:d.cur.line], d.lines[d.cur.line+1:]...)
		if d.cur.line >= len(d.lines) {
			d.cur.line = len(d.lines) - 1
		}
	}
	d.cur.col = 0
	d.edited()
	return true
}

// deleteSelection removes the selected range. Callers own undo and
// version bookkeeping.
func (d *Document) deleteSelection() {
	start, end, ok := d.Selection()
	if !ok {
		d.anchor = nil
		return
	}
	startLine := []rune(d.lines[start.line])
	endLine := []rune(d.lines[end.line])
	merged := string(startLine[:start.col]) + string(endLine[end.col:])
	d.lines = append(d.lines[:start.line], d.lines[end.line:]...)
	d.lines[start.line] = merged
	d.cur = start
	d.anchor = nil
}

// Undo reverts the last edit. Returns false when nothing to undo.
func (d *Document) Undo() bool {
	if d.ReadOnly || len(d.undo) == 0 {
		return false
	}
	d.redo = append(d.redo, d.snapshot())
	last := d.undo[len(d.undo)-1]
	d.undo = d.undo[:len(d.undo)-1]
	d.restore(last)
	return true
}

// Redo re-applies the last undone edit.
func (d *Document) Redo() bool {
	if d.ReadOnly || len(d.redo) == 0 {
		return false
	}
	d.undo = append(d.undo, d.snapshot())
	last := d.redo[len(d.redo)-1]
	d.redo = d.redo[:len(d.redo)-1]
	d.restore(last)
	return true
}

// Movement. Vertical moves clamp the column; horizontal moves wrap
// across line boundaries.

func (d *Document) MoveLeft() {
	if d.cur.col > 0 {
		d.cur.col--
	} else if d.cur.line > 0 {
		d.cur.line--
		d.cur.col = len(d.curLine())
	}
}

func (d *Document) MoveRight() {
	if d.cur.col < len(d.curLine()) {
		d.cur.col++
	} else if d.cur.line < len(d.lines)-1 {
		d.cur.line++
		d.cur.col = 0
	}
}

func (d *Document) MoveUp() {
	if d.cur.line > 0 {
		d.cur.line--
		d.clampCol()
	}
}

func (d *Document) MoveDown() {
	if d.cur.line < len(d.lines)-1 {
		d.cur.line++
		d.clampCol()
	}
}

func (d *Document) MoveLineStart() { d.cur.col = 0 }

func (d *Document) MoveLineEnd() { d.cur.col = len(d.curLine()) }

func (d *Document) MoveBufferStart() { d.cur = position{} }

func (d *Document) MoveBufferEnd() {
	d.cur.line = len(d.lines) - 1
	d.cur.col = len(d.curLine())
}

// MovePage moves the cursor by one screen of lines.
func (d *Document) MovePage(lines int) {
	d.cur.line += lines
	if d.cur.line < 0 {
		d.cur.line = 0
	}
	if d.cur.line > len(d.lines)-1 {
		d.cur.line = len(d.lines) - 1
	}
	d.clampCol()
}

// MoveWordForward advances past the current word and any following
// non-word runes.
func (d *Document) MoveWordForward() {
	line := d.curLine()
	col := d.cur.col
	for col < len(line) && isWordRune(line[col]) {
		col++
	}
	for col < len(line) && !isWordRune(line[col]) {
		col++
	}
	if col == d.cur.col && d.cur.line < len(d.lines)-1 {
		d.cur.line++
		d.cur.col = 0
		return
	}
	d.cur.col = col
}

// MoveWordBackward retreats to the start of the previous word.
func (d *Document) MoveWordBackward() {
	if d.cur.col == 0 {
		if d.cur.line > 0 {
			d.cur.line--
			d.cur.col = len(d.curLine())
		}
		return
	}
	line := d.curLine()
	col := d.cur.col
	for col > 0 && !isWordRune(line[col-1]) {
		col--
	}
	for col > 0 && isWordRune(line[col-1]) {
		col--
	}
	d.cur.col = col
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// ensureAnchor pins the selection anchor at the cursor if none exists.
func (d *Document) ensureAnchor() {
	if d.anchor == nil {
		a := d.cur
		d.anchor = &a
	}
}

// ClearSelection drops the selection anchor.
func (d *Document) ClearSelection() { d.anchor = nil }

// SelectAll selects the whole buffer.
func (d *Document) SelectAll() {
	a := position{}
	d.anchor = &a
	d.MoveBufferEnd()
}

// WordAt returns the word under or immediately before the cursor.
func (d *Document) WordAt() string {
	line := d.curLine()
	if len(line) == 0 {
		return ""
	}
	col := d.cur.col
	if col >= len(line) || (!isWordRune(line[col]) && col > 0) {
		col--
	}
	if col < 0 || col >= len(line) || !isWordRune(line[col]) {
		return ""
	}
	start, end := col, col+1
	for start > 0 && isWordRune(line[start-1]) {
		start--
	}
	for end < len(line) && isWordRune(line[end]) {
		end++
	}
	return string(line[start:end])
}

// Search moves the cursor to the next occurrence of query, wrapping
// around the buffer. Returns false when the query does not occur.
func (d *Document) Search(query string, forward bool) bool {
	if query == "" {
		return false
	}
	n := len(d.lines)
	if forward {
		for i := 0; i <= n; i++ {
			lineIdx := (d.cur.line + i) % n
			line := d.lines[lineIdx]
			from := 0
			if i == 0 {
				// Step past the rune under the cursor, not one byte.
				from = runeIndexToByte(line, d.cur.col)
				if from >= len(line) {
					continue
				}
				_, width := utf8.DecodeRuneInString(line[from:])
				from += width
			}
			if at := strings.Index(line[from:], query); at >= 0 {
				d.cur = position{line: lineIdx, col: byteIndexToRune(line, from+at)}
				d.anchor = nil
				return true
			}
		}
		return false
	}
	for i := 0; i <= n; i++ {
		lineIdx := ((d.cur.line-i)%n + n) % n
		line := d.lines[lineIdx]
		limit := len(line)
		if i == 0 {
			limit = runeIndexToByte(line, d.cur.col)
		}
		if at := strings.LastIndex(line[:limit], query); at >= 0 {
			d.cur = position{line: lineIdx, col: byteIndexToRune(line, at)}
			d.anchor = nil
			return true
		}
	}
	return false
}

func runeIndexToByte(s string, runeIdx int) int {
	i := 0
	for pos := range s {
		if i == runeIdx {
			return pos
		}
		i++
	}
	return len(s)
}

func byteIndexToRune(s string, byteIdx int) int {
	return len([]rune(s[:byteIdx]))
}

// DocumentManager tracks open documents in open order.
type DocumentManager struct {
	docs []*Document
}

// NewDocumentManager creates an empty manager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{}
}

// Open loads path, or returns the existing document when already open.
// The second result reports whether the document was already open.
func (m *DocumentManager) Open(path string, readOnly bool) (*Document, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, err
	}
	for _, d := range m.docs {
		if d.Path == abs {
			return d, true, nil
		}
	}
	doc, err := openDocument(abs, readOnly)
	if err != nil {
		return nil, false, err
	}
	m.docs = append(m.docs, doc)
	return doc, false, nil
}

// Get returns the document for uri, if open.
func (m *DocumentManager) Get(uri lsp.DocumentURI) *Document {
	for _, d := range m.docs {
		if d.URI == uri {
			return d
		}
	}
	return nil
}

// Close removes doc from the manager.
func (m *DocumentManager) Close(doc *Document) {
	for i, d := range m.docs {
		if d == doc {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return
		}
	}
}

// All returns the open documents in open order.
func (m *DocumentManager) All() []*Document { return m.docs }

// Count returns the number of open documents.
func (m *DocumentManager) Count() int { return len(m.docs) }
