package app

import (
	"os"
	"path/filepath"
	"testing"
)

func newDoc(text string) *Document {
	return &Document{
		LanguageID: "plaintext",
		lines:      splitLines(text),
		version:    1,
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 1},
		{"single line no newline", "hello", 1},
		{"trailing newline", "hello\n", 1},
		{"two lines", "a\nb\n", 2},
		{"crlf", "a\r\nb\r\n", 2},
		{"blank middle line", "a\n\nb", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(splitLines(tt.text)); got != tt.want {
				t.Errorf("splitLines(%q) = %d lines, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestLanguageIDForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"lib.rs", "rust"},
		{"script.PY", "python"},
		{"notes.txt", "plaintext"},
		{"Makefile", "plaintext"},
	}
	for _, tt := range tests {
		if got := languageIDForPath(tt.path); got != tt.want {
			t.Errorf("languageIDForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestInsertRune(t *testing.T) {
	doc := newDoc("")
	for _, r := range "hi" {
		if !doc.InsertRune(r) {
			t.Fatalf("InsertRune(%q) returned false", r)
		}
	}
	if got := doc.Text(); got != "hi" {
		t.Errorf("Text() = %q, want %q", got, "hi")
	}
	if doc.Version() != 3 {
		t.Errorf("Version() = %d, want 3", doc.Version())
	}
	if !doc.Modified() {
		t.Error("Modified() = false after edits")
	}
}

func TestInsertNewlineSplitsLine(t *testing.T) {
	doc := newDoc("ab")
	doc.MoveRight()
	doc.InsertNewline()
	if got := doc.Text(); got != "a\nb" {
		t.Errorf("Text() = %q, want %q", got, "a\nb")
	}
	line, col := doc.Cursor()
	if line != 1 || col != 0 {
		t.Errorf("Cursor() = %d:%d, want 1:0", line, col)
	}
}

func TestInsertTab(t *testing.T) {
	spaces := newDoc("x")
	spaces.InsertTab(2, true)
	if got := spaces.Text(); got != "  x" {
		t.Errorf("spaces: Text() = %q, want %q", got, "  x")
	}

	tabs := newDoc("x")
	tabs.InsertTab(2, false)
	if got := tabs.Text(); got != "\tx" {
		t.Errorf("tabs: Text() = %q, want %q", got, "\tx")
	}
}

func TestDeleteBackward(t *testing.T) {
	doc := newDoc("ab\ncd")
	doc.MoveDown()

	// At column zero the delete joins with the previous line.
	if !doc.DeleteBackward() {
		t.Fatal("DeleteBackward at line start returned false")
	}
	if got := doc.Text(); got != "abcd" {
		t.Errorf("Text() = %q, want %q", got, "abcd")
	}
	line, col := doc.Cursor()
	if line != 0 || col != 2 {
		t.Errorf("Cursor() = %d:%d, want 0:2", line, col)
	}

	// At buffer start nothing happens.
	doc.MoveBufferStart()
	if doc.DeleteBackward() {
		t.Error("DeleteBackward at buffer start returned true")
	}
}

func TestDeleteForwardJoinsLines(t *testing.T) {
	doc := newDoc("ab\ncd")
	doc.MoveLineEnd()
	if !doc.DeleteForward() {
		t.Fatal("DeleteForward at line end returned false")
	}
	if got := doc.Text(); got != "abcd" {
		t.Errorf("Text() = %q, want %q", got, "abcd")
	}
}

func TestDeleteLine(t *testing.T) {
	doc := newDoc("a\nb\nc")
	doc.MoveDown()
	doc.DeleteLine()
	if got := doc.Text(); got != "a\nc" {
		t.Errorf("Text() = %q, want %q", got, "a\nc")
	}

	single := newDoc("only")
	single.DeleteLine()
	if got := single.Text(); got != "" {
		t.Errorf("single line: Text() = %q, want empty", got)
	}
	if single.DeleteLine() {
		t.Error("DeleteLine on empty buffer returned true")
	}
}

func TestUndoRedo(t *testing.T) {
	doc := newDoc("")
	doc.InsertRune('a')
	doc.InsertRune('b')

	if !doc.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := doc.Text(); got != "a" {
		t.Errorf("after undo: Text() = %q, want %q", got, "a")
	}
	if !doc.Redo() {
		t.Fatal("Redo returned false")
	}
	if got := doc.Text(); got != "ab" {
		t.Errorf("after redo: Text() = %q, want %q", got, "ab")
	}

	// A new edit discards the redo stack.
	doc.Undo()
	doc.InsertRune('z')
	if doc.Redo() {
		t.Error("Redo after a fresh edit returned true")
	}
}

func TestReadOnlyRejectsEdits(t *testing.T) {
	doc := newDoc("text")
	doc.ReadOnly = true
	if doc.InsertRune('x') || doc.DeleteForward() || doc.DeleteLine() {
		t.Error("read-only document accepted an edit")
	}
	if doc.Text() != "text" {
		t.Errorf("read-only document changed: %q", doc.Text())
	}
}

func TestWordMovement(t *testing.T) {
	doc := newDoc("foo bar_baz qux")

	doc.MoveWordForward()
	if _, col := doc.Cursor(); col != 4 {
		t.Errorf("after first word forward: col = %d, want 4", col)
	}
	doc.MoveWordForward()
	if _, col := doc.Cursor(); col != 12 {
		t.Errorf("after second word forward: col = %d, want 12", col)
	}
	doc.MoveWordBackward()
	if _, col := doc.Cursor(); col != 4 {
		t.Errorf("after word backward: col = %d, want 4", col)
	}
}

func TestVerticalMoveClampsColumn(t *testing.T) {
	doc := newDoc("a long line\nhi")
	doc.MoveLineEnd()
	doc.MoveDown()
	if _, col := doc.Cursor(); col != 2 {
		t.Errorf("col = %d, want 2 after moving to a shorter line", col)
	}
}

func TestSelectionDelete(t *testing.T) {
	doc := newDoc("hello world")
	doc.ensureAnchor()
	for i := 0; i < 6; i++ {
		doc.MoveRight()
	}
	if _, _, ok := doc.Selection(); !ok {
		t.Fatal("Selection() reports no selection")
	}
	doc.DeleteBackward()
	if got := doc.Text(); got != "world" {
		t.Errorf("Text() = %q, want %q", got, "world")
	}
	if _, _, ok := doc.Selection(); ok {
		t.Error("selection survived the delete")
	}
}

func TestSelectAll(t *testing.T) {
	doc := newDoc("a\nbc")
	doc.SelectAll()
	start, end, ok := doc.Selection()
	if !ok {
		t.Fatal("SelectAll left no selection")
	}
	if start != (position{}) || end != (position{line: 1, col: 2}) {
		t.Errorf("Selection() = %v..%v", start, end)
	}
}

func TestWordAt(t *testing.T) {
	doc := newDoc("foo bar")
	if got := doc.WordAt(); got != "foo" {
		t.Errorf("WordAt() at start = %q, want %q", got, "foo")
	}
	doc.MoveLineEnd()
	if got := doc.WordAt(); got != "bar" {
		t.Errorf("WordAt() at end = %q, want %q", got, "bar")
	}
	if got := newDoc("").WordAt(); got != "" {
		t.Errorf("WordAt() on empty = %q, want empty", got)
	}
}

func TestSearchWrapsAround(t *testing.T) {
	doc := newDoc("one two\nthree two\nfour")

	if !doc.Search("two", true) {
		t.Fatal("forward search found nothing")
	}
	line, col := doc.Cursor()
	if line != 0 || col != 4 {
		t.Errorf("first match at %d:%d, want 0:4", line, col)
	}

	if !doc.Search("two", true) {
		t.Fatal("second forward search found nothing")
	}
	if line, _ = doc.Cursor(); line != 1 {
		t.Errorf("second match on line %d, want 1", line)
	}

	// Next forward search wraps back to the first occurrence.
	if !doc.Search("two", true) {
		t.Fatal("wrapping search found nothing")
	}
	if line, _ = doc.Cursor(); line != 0 {
		t.Errorf("wrapped match on line %d, want 0", line)
	}

	if doc.Search("missing", true) {
		t.Error("search for absent text returned true")
	}
}

func TestSearchFromMultibyteRune(t *testing.T) {
	// Cursor sits on a multi-byte rune; stepping past it must consume
	// the whole rune so matches land on correct columns.
	doc := newDoc("日本語 word 日本語")

	if !doc.Search("日本語", true) {
		t.Fatal("forward search found nothing")
	}
	if _, col := doc.Cursor(); col != 9 {
		t.Errorf("match col = %d, want 9", col)
	}

	// The next search wraps to the occurrence at the line start.
	if !doc.Search("日本語", true) {
		t.Fatal("wrapping search found nothing")
	}
	if _, col := doc.Cursor(); col != 0 {
		t.Errorf("wrapped match col = %d, want 0", col)
	}
}

func TestSearchBackward(t *testing.T) {
	doc := newDoc("a\nneedle\nb")
	doc.MoveBufferEnd()
	if !doc.Search("needle", false) {
		t.Fatal("backward search found nothing")
	}
	if line, _ := doc.Cursor(); line != 1 {
		t.Errorf("match on line %d, want 1", line)
	}
}

func TestOpenDocumentMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.go")
	doc, err := openDocument(path, false)
	if err != nil {
		t.Fatalf("openDocument: %v", err)
	}
	if doc.Text() != "" {
		t.Errorf("missing file produced content %q", doc.Text())
	}
	if doc.LanguageID != "go" {
		t.Errorf("LanguageID = %q, want go", doc.LanguageID)
	}
	if doc.Modified() {
		t.Error("fresh document reports modified")
	}
}

func TestOpenDocumentReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := openDocument(path, false)
	if err != nil {
		t.Fatalf("openDocument: %v", err)
	}
	if doc.LineCount() != 2 {
		t.Errorf("LineCount() = %d, want 2", doc.LineCount())
	}
	if doc.Line(1) != "two" {
		t.Errorf("Line(1) = %q, want %q", doc.Line(1), "two")
	}
}

func TestDocumentManagerDedup(t *testing.T) {
	m := NewDocumentManager()
	path := filepath.Join(t.TempDir(), "a.txt")

	first, already, err := m.Open(path, false)
	if err != nil || already {
		t.Fatalf("first Open: already=%v err=%v", already, err)
	}
	second, already, err := m.Open(path, false)
	if err != nil || !already {
		t.Fatalf("second Open: already=%v err=%v", already, err)
	}
	if first != second {
		t.Error("reopening returned a different document")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	m.Close(first)
	if m.Count() != 0 {
		t.Errorf("Count() after Close = %d, want 0", m.Count())
	}
}
