// Package backend provides the terminal display backend for smash.
package backend

import (
	"github.com/gdamore/tcell/v2"

	"github.com/smash-editor/smash/internal/input/key"
)

// EventType identifies the kind of terminal event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventMouse
	EventResize
	EventInterrupt
)

// Event is a terminal event translated into editor vocabulary.
type Event struct {
	Type EventType

	// Key event fields
	Key key.Event

	// Mouse event fields
	MouseX, MouseY int
	Button         tcell.ButtonMask

	// Resize event fields
	Cols, Rows int
}

// Backend is the display surface the editor draws on and reads events
// from. Terminal is the tcell implementation; Null drives tests.
type Backend interface {
	// Init takes over the terminal. Must be called first.
	Init() error

	// Fini restores the terminal state.
	Fini()

	// Size returns the surface dimensions in cells.
	Size() (cols, rows int)

	// SetCell writes one cell. Out-of-range positions are ignored.
	SetCell(x, y int, r rune, style tcell.Style)

	// DrawText writes a string starting at (x, y), clipped to the width.
	DrawText(x, y int, text string, style tcell.Style)

	// Clear erases the surface.
	Clear()

	// Show flushes pending changes to the display.
	Show()

	// ShowCursor places and shows the cursor.
	ShowCursor(x, y int)

	// HideCursor hides the cursor.
	HideCursor()

	// PollEvent blocks for the next event.
	PollEvent() Event

	// Interrupt wakes a blocked PollEvent with an EventInterrupt.
	Interrupt()
}

// Terminal is the tcell-backed display surface.
type Terminal struct {
	screen tcell.Screen
}

// NewTerminal creates a terminal backend on the process tty.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &Terminal{screen: screen}, nil
}

func (t *Terminal) Init() error {
	if err := t.screen.Init(); err != nil {
		return err
	}
	t.screen.EnableMouse()
	t.screen.EnablePaste()
	return nil
}

func (t *Terminal) Fini() {
	t.screen.Fini()
}

func (t *Terminal) Size() (int, int) {
	return t.screen.Size()
}

func (t *Terminal) SetCell(x, y int, r rune, style tcell.Style) {
	t.screen.SetContent(x, y, r, nil, style)
}

func (t *Terminal) DrawText(x, y int, text string, style tcell.Style) {
	cols, _ := t.screen.Size()
	for _, r := range text {
		if x >= cols {
			break
		}
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (t *Terminal) Clear() {
	t.screen.Clear()
}

func (t *Terminal) Show() {
	t.screen.Show()
}

func (t *Terminal) ShowCursor(x, y int) {
	t.screen.ShowCursor(x, y)
}

func (t *Terminal) HideCursor() {
	t.screen.HideCursor()
}

func (t *Terminal) PollEvent() Event {
	for {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			return Event{Type: EventKey, Key: TranslateKey(ev)}
		case *tcell.EventMouse:
			x, y := ev.Position()
			return Event{Type: EventMouse, MouseX: x, MouseY: y, Button: ev.Buttons()}
		case *tcell.EventResize:
			cols, rows := ev.Size()
			return Event{Type: EventResize, Cols: cols, Rows: rows}
		case *tcell.EventInterrupt:
			return Event{Type: EventInterrupt}
		case nil:
			// Screen finalized.
			return Event{Type: EventInterrupt}
		default:
			// Paste and focus events are not consumed by the editor yet.
		}
	}
}

func (t *Terminal) Interrupt() {
	_ = t.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

var _ Backend = (*Terminal)(nil)
