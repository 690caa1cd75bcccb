package terminal

import "errors"

// Sentinel errors for the terminal package.
var (
	// ErrPtyClosed is returned by operations on a closed pty.
	ErrPtyClosed = errors.New("pty is closed")

	// ErrPtyFailed is returned when the pseudo-terminal could not be set up.
	ErrPtyFailed = errors.New("pty setup failed")

	// ErrShellNotFound is returned when the shell executable is missing.
	ErrShellNotFound = errors.New("shell not found")

	// ErrInvalidSize is returned for sizes with non-positive dimensions.
	ErrInvalidSize = errors.New("invalid terminal size")

	// ErrResizeFailed is returned when the child could not be informed of
	// a new window size.
	ErrResizeFailed = errors.New("resize failed")

	// ErrManagerClosed is returned when creating panes on a closed manager.
	ErrManagerClosed = errors.New("terminal manager is closed")

	// ErrPaneNotFound is returned when a pane id is unknown.
	ErrPaneNotFound = errors.New("pane not found")
)
