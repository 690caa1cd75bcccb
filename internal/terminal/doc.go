// Package terminal provides the pseudo-terminal layer for smash.
//
// The package is organized around these core types:
//
//   - Pty: the capability boundary {write, read, resize, liveness,
//     exit code, close} between a pane and its byte source
//   - shellPty: a shell running on an OS pseudo-terminal
//   - MockPty: a deterministic in-memory Pty for tests
//   - Pane: the consumer that owns one Pty and pumps its output
//   - Manager: tracks the panes of one editor instance
//
// Reads never block: the shell variant drains the master in a background
// reader, and Read hands back whatever accumulated since the last call.
// Writes are all-or-error; a closed pty rejects writes with ErrPtyClosed
// but may still yield buffered output on Read.
//
// Create a manager and spawn a pane:
//
//	manager := terminal.NewManager(terminal.ManagerConfig{
//	    DefaultShell: "/bin/zsh",
//	})
//	pane, err := manager.Create(terminal.PaneOptions{
//	    Name: "main",
//	    Size: terminal.Size{Cols: 80, Rows: 24},
//	    OnOutput: func(data []byte) {
//	        // feed the VT parser
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pane.WriteString("ls -la\n")
package terminal
