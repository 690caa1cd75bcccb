// Command smash is a modal, multi-pane terminal code editor with
// language server support and embedded shell panes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/smash-editor/smash/internal/app"
	"github.com/smash-editor/smash/internal/renderer/backend"
)

// Build information, set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, showVersion := parseFlags()

	if showVersion {
		fmt.Printf("smash %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "smash: %v\n", err)
		return 1
	}

	term, err := backend.NewTerminal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "smash: opening terminal: %v\n", err)
		return 1
	}
	application.SetBackend(term)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		application.Shutdown()
	}()

	if err := application.Run(context.Background()); err != nil {
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "smash: %v\n", err)
		return 1
	}
	return 0
}

// parseFlags builds application options from the command line. The
// remaining arguments are files to open.
func parseFlags() (app.Options, bool) {
	var (
		configPath  string
		workspace   string
		readOnly    bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "path to configuration file")
	flag.StringVar(&configPath, "c", "", "path to configuration file (shorthand)")
	flag.StringVar(&workspace, "workspace", "", "workspace root directory")
	flag.StringVar(&workspace, "w", "", "workspace root directory (shorthand)")
	flag.BoolVar(&readOnly, "readonly", false, "open files read-only")
	flag.BoolVar(&readOnly, "R", false, "open files read-only (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&showVersion, "v", false, "print version and exit (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: smash [options] [files...]\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	files := flag.Args()

	// Without an explicit workspace, fall back to the directory of the
	// first file.
	if workspace == "" && len(files) > 0 {
		if abs, err := filepath.Abs(files[0]); err == nil {
			workspace = filepath.Dir(abs)
		}
	}

	return app.Options{
		ConfigPath:    configPath,
		WorkspacePath: workspace,
		Files:         files,
		ReadOnly:      readOnly,
	}, showVersion
}
