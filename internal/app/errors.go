// Package app wires the editor together: key resolution, documents,
// the language server session, terminal panes, and the screen backend.
package app

import "errors"

// Application errors.
var (
	// ErrQuit signals that the application should exit normally.
	ErrQuit = errors.New("quit requested")

	// ErrAlreadyRunning indicates the application is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrNoBackend indicates Run was called before SetBackend.
	ErrNoBackend = errors.New("no backend configured")

	// ErrLastPane indicates the only remaining editor pane cannot close.
	ErrLastPane = errors.New("cannot close last pane")
)
