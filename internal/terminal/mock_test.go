package terminal

import (
	"bytes"
	"errors"
	"testing"
)

func TestMockPtyLifecycle(t *testing.T) {
	m := NewMockPty(Size{Cols: 80, Rows: 24})

	if !m.IsAlive() {
		t.Fatal("new mock must be alive")
	}
	if _, ok := m.ExitCode(); ok {
		t.Error("live mock must not report an exit code")
	}

	if err := m.Write([]byte("hi")); err != nil {
		t.Fatalf("Write = %v", err)
	}
	if got := m.Input(); !bytes.Equal(got, []byte("hi")) {
		t.Errorf("recorded input = %q, want %q", got, "hi")
	}

	m.SetReadData([]byte("ok"))
	if got := m.Read(); !bytes.Equal(got, []byte("ok")) {
		t.Errorf("Read = %q, want %q", got, "ok")
	}
	if got := m.Read(); len(got) != 0 {
		t.Errorf("second Read = %q, want empty", got)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
	if err := m.Write([]byte("late")); !errors.Is(err, ErrPtyClosed) {
		t.Errorf("write after close = %v, want ErrPtyClosed", err)
	}
	code, ok := m.ExitCode()
	if !ok || code != 0 {
		t.Errorf("ExitCode = (%d, %v), want (0, true)", code, ok)
	}
}

func TestMockPtyCloseIdempotent(t *testing.T) {
	m := NewMockPty(Size{Cols: 80, Rows: 24})
	m.SimulateExit(3)

	// Close after a simulated exit must not overwrite the code.
	if err := m.Close(); err != nil {
		t.Fatalf("Close = %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close = %v", err)
	}
	code, ok := m.ExitCode()
	if !ok || code != 3 {
		t.Errorf("ExitCode = (%d, %v), want (3, true)", code, ok)
	}
}

func TestMockPtyReadDrainsAfterClose(t *testing.T) {
	m := NewMockPty(Size{Cols: 80, Rows: 24})
	m.SetReadData([]byte("buffered"))
	m.Close()

	if got := m.Read(); !bytes.Equal(got, []byte("buffered")) {
		t.Errorf("Read after close = %q, want buffered output", got)
	}
	if got := m.Read(); len(got) != 0 {
		t.Errorf("drained Read = %q, want empty", got)
	}
}

func TestMockPtyResize(t *testing.T) {
	m := NewMockPty(Size{Cols: 80, Rows: 24})

	want := Size{Cols: 120, Rows: 40}
	if err := m.Resize(want); err != nil {
		t.Fatalf("Resize = %v", err)
	}
	if got := m.Size(); got != want {
		t.Errorf("Size = %+v, want %+v", got, want)
	}

	if err := m.Resize(Size{Cols: 0, Rows: 10}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("zero cols = %v, want ErrInvalidSize", err)
	}
	if err := m.Resize(Size{Cols: 10, Rows: -1}); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("negative rows = %v, want ErrInvalidSize", err)
	}

	m.Close()
	if err := m.Resize(want); !errors.Is(err, ErrPtyClosed) {
		t.Errorf("resize after close = %v, want ErrPtyClosed", err)
	}
}
