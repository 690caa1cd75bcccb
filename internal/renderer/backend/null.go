package backend

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Null is an in-memory Backend for tests. Cells are recorded in a grid
// and events are fed through PostEvent.
type Null struct {
	mu sync.Mutex

	cols, rows int
	cells      [][]rune

	cursorX, cursorY int
	cursorVisible    bool
	shown            int

	events chan Event
}

// NewNull creates a null backend with the given dimensions.
func NewNull(cols, rows int) *Null {
	return &Null{
		cols:   cols,
		rows:   rows,
		events: make(chan Event, 100),
	}
}

func (b *Null) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
	return nil
}

func (b *Null) reset() {
	b.cells = make([][]rune, b.rows)
	for y := range b.cells {
		b.cells[y] = make([]rune, b.cols)
		for x := range b.cells[y] {
			b.cells[y][x] = ' '
		}
	}
}

func (b *Null) Fini() {}

func (b *Null) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cols, b.rows
}

func (b *Null) SetCell(x, y int, r rune, _ tcell.Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if y >= 0 && y < b.rows && x >= 0 && x < b.cols {
		b.cells[y][x] = r
	}
}

func (b *Null) DrawText(x, y int, text string, style tcell.Style) {
	for _, r := range text {
		b.SetCell(x, y, r, style)
		x++
	}
}

func (b *Null) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

func (b *Null) Show() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shown++
}

func (b *Null) ShowCursor(x, y int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorX, b.cursorY, b.cursorVisible = x, y, true
}

func (b *Null) HideCursor() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursorVisible = false
}

func (b *Null) PollEvent() Event {
	return <-b.events
}

func (b *Null) Interrupt() {
	b.PostEvent(Event{Type: EventInterrupt})
}

// PostEvent queues a synthetic event; it is dropped if the queue is full.
func (b *Null) PostEvent(ev Event) {
	select {
	case b.events <- ev:
	default:
	}
}

// Row returns the rendered text of one row, for assertions.
func (b *Null) Row(y int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if y < 0 || y >= b.rows {
		return ""
	}
	return string(b.cells[y])
}

// Cursor returns the cursor state, for assertions.
func (b *Null) Cursor() (x, y int, visible bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursorX, b.cursorY, b.cursorVisible
}

var _ Backend = (*Null)(nil)
