package terminal

// Size is a terminal window size in character cells.
type Size struct {
	Cols int
	Rows int
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Cols > 0 && s.Rows > 0
}

// Pty is the capability boundary between a terminal pane and whatever
// produces terminal bytes. Two implementations exist: a shell running on
// an OS pseudo-terminal, and an in-memory mock for tests.
type Pty interface {
	// Write sends input bytes to the pty. Either every byte is accepted
	// or an error is returned; writes are never silently truncated.
	// Writing to a closed pty fails with ErrPtyClosed.
	Write(p []byte) error

	// Read drains the output buffered since the last call. It never
	// blocks; an empty result means nothing is pending, not end of
	// stream. A closed pty may still return buffered output.
	Read() []byte

	// Resize informs the child of a new window size.
	Resize(size Size) error

	// Size returns the last size applied.
	Size() Size

	// IsAlive reports whether the pty can still accept writes.
	IsAlive() bool

	// ExitCode returns the child's exit status once it has exited. The
	// boolean is false while the pty is alive.
	ExitCode() (int, bool)

	// Close terminates the child and releases the pty. Idempotent; a
	// child that had not exited is recorded with exit code 0.
	Close() error
}
