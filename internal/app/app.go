package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smash-editor/smash/internal/config"
	"github.com/smash-editor/smash/internal/input/keymap"
	"github.com/smash-editor/smash/internal/lsp"
	"github.com/smash-editor/smash/internal/renderer/backend"
	"github.com/smash-editor/smash/internal/terminal"
)

// sessionShutdownTimeout bounds the drain of the language server
// session during application shutdown.
const sessionShutdownTimeout = 3 * time.Second

// Options configures the application.
type Options struct {
	// ConfigPath is the configuration file location. Empty means the
	// user default path.
	ConfigPath string

	// WorkspacePath is the project root advertised to language servers.
	WorkspacePath string

	// Files are opened on startup, the first one focused.
	Files []string

	// ReadOnly opens all files read-only.
	ReadOnly bool
}

// view is one editor pane showing a document.
type view struct {
	doc     *Document
	topLine int
}

// Application coordinates the editor: one resolver, one language
// server session, one terminal pane manager, and the screen backend.
// All editor state is owned by the Run loop goroutine.
type Application struct {
	opts Options
	cfg  config.Config

	backend   backend.Backend
	resolver  *keymap.Resolver
	session   *lsp.Session
	terminals *terminal.Manager
	docs      *DocumentManager
	watcher   *config.Watcher

	views    []*view
	focus    int
	vertical bool

	termPane    *terminal.Pane
	termVisible bool
	termFocused bool
	termMu      sync.Mutex
	termOutput  []byte

	status      string
	lastQuery   string
	lastForward bool

	configDirty atomic.Bool

	running atomic.Bool
	done    chan struct{}
	quit    sync.Once
}

// New creates an application from opts. Configuration errors are not
// fatal; the editor starts on defaults and reports them in the status
// line.
func New(opts Options) (*Application, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath()
	}

	app := &Application{
		opts: opts,
		docs: NewDocumentManager(),
		done: make(chan struct{}),
	}

	cfg, err := config.Load(opts.ConfigPath)
	app.cfg = cfg
	if err != nil {
		app.status = err.Error()
	}

	if err := app.applyKeymap(); err != nil {
		return nil, err
	}

	sessionOpts := []lsp.SessionOption{}
	if opts.WorkspacePath != "" {
		sessionOpts = append(sessionOpts, lsp.WithRootURI(lsp.FilePathToURI(opts.WorkspacePath)))
	}
	app.session = lsp.NewSession(sessionOpts...)

	pane := cfg.PaneOptions()
	app.terminals = terminal.NewManager(terminal.ManagerConfig{
		DefaultShell: pane.Shell,
		DefaultSize:  pane.Size,
	})

	app.views = []*view{{doc: newScratch()}}
	return app, nil
}

// newScratch returns an unnamed in-memory buffer.
func newScratch() *Document {
	return &Document{
		LanguageID: "plaintext",
		lines:      []string{""},
		version:    1,
	}
}

// applyKeymap rebuilds the resolver from the current configuration.
func (app *Application) applyKeymap() error {
	km, err := app.cfg.BuildKeymap()
	if err != nil {
		return fmt.Errorf("building keymap: %w", err)
	}
	app.resolver = keymap.NewResolver(km)
	return nil
}

// SetBackend sets the display surface. Must be called before Run.
func (app *Application) SetBackend(b backend.Backend) {
	app.backend = b
}

// Session exposes the language server session, for status integration.
func (app *Application) Session() *lsp.Session { return app.session }

// ActiveDocument returns the document in the focused view.
func (app *Application) ActiveDocument() *Document {
	return app.views[app.focus].doc
}

// Status returns the current status line message.
func (app *Application) Status() string { return app.status }

// Shutdown requests a clean exit. Safe to call from any goroutine.
func (app *Application) Shutdown() {
	app.quit.Do(func() { close(app.done) })
}

// Run drives the editor until quit or context cancellation. Returns
// ErrQuit on a normal user-requested exit.
func (app *Application) Run(ctx context.Context) error {
	if app.backend == nil {
		return ErrNoBackend
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := app.backend.Init(); err != nil {
		return fmt.Errorf("initializing backend: %w", err)
	}
	defer app.backend.Fini()

	sctx, cancelSession := context.WithCancel(context.Background())
	defer cancelSession()
	sessionStopped := make(chan struct{})
	go func() {
		defer close(sessionStopped)
		app.session.Run(sctx)
	}()

	app.startServers(ctx)
	app.openInitialFiles(ctx)
	app.startConfigWatcher()

	polled := make(chan backend.Event)
	go app.pollLoop(polled)

	events := app.session.Events()
	app.render()

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop

		case <-app.done:
			runErr = ErrQuit
			break loop

		case ev := <-polled:
			if err := app.handleBackendEvent(ctx, ev); err != nil {
				runErr = err
				break loop
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			app.handleSessionEvent(ev)
		}
		app.render()
	}

	app.teardown(cancelSession, sessionStopped)
	return runErr
}

// pollLoop forwards backend events to the run loop until shutdown.
func (app *Application) pollLoop(out chan<- backend.Event) {
	for {
		ev := app.backend.PollEvent()
		select {
		case out <- ev:
		case <-app.done:
			return
		}
	}
}

// startServers starts every configured language server.
func (app *Application) startServers(ctx context.Context) {
	for _, cfg := range app.cfg.ServerConfigs() {
		if cfg.RootURI == "" && app.opts.WorkspacePath != "" {
			cfg.RootURI = lsp.FilePathToURI(app.opts.WorkspacePath)
		}
		app.sendLSP(ctx, lsp.StartServer{Config: cfg})
	}
}

// openInitialFiles opens the files named on the command line. The
// first one replaces the scratch buffer in the focused view.
func (app *Application) openInitialFiles(ctx context.Context) {
	for i, path := range app.opts.Files {
		doc, already, err := app.docs.Open(path, app.opts.ReadOnly)
		if err != nil {
			app.status = fmt.Sprintf("open %s: %v", path, err)
			continue
		}
		if i == 0 {
			app.views[app.focus].doc = doc
		}
		if !already {
			app.sendLSP(ctx, lsp.DidOpen{
				URI:        doc.URI,
				Text:       doc.Text(),
				LanguageID: doc.LanguageID,
			})
		}
	}
}

// startConfigWatcher begins watching the configuration file. The
// reload happens on the run loop via a synthetic interrupt.
func (app *Application) startConfigWatcher() {
	if app.opts.ConfigPath == "" {
		return
	}
	w, err := config.NewWatcher(app.opts.ConfigPath, func() {
		app.configDirty.Store(true)
		app.backend.Interrupt()
	})
	if err != nil {
		return
	}
	app.watcher = w
}

// reloadConfig re-reads the configuration and rebuilds the keymap.
// Called on the run loop only.
func (app *Application) reloadConfig() {
	cfg, err := config.Load(app.opts.ConfigPath)
	if err != nil {
		app.status = err.Error()
		return
	}
	app.cfg = cfg
	if err := app.applyKeymap(); err != nil {
		app.status = err.Error()
		return
	}
	app.status = "configuration reloaded"
}

// sendLSP enqueues a session command without blocking the editor for
// long. A full queue surfaces as a status message.
func (app *Application) sendLSP(ctx context.Context, cmd lsp.Command) {
	sctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := app.session.Send(sctx, cmd); err != nil {
		app.status = err.Error()
	}
}

// teardown stops the session, terminal panes, and the config watcher.
func (app *Application) teardown(cancelSession context.CancelFunc, sessionStopped <-chan struct{}) {
	if app.watcher != nil {
		app.watcher.Close()
	}

	sctx, cancel := context.WithTimeout(context.Background(), sessionShutdownTimeout)
	defer cancel()
	if err := app.session.Send(sctx, lsp.Shutdown{}); err == nil {
		for {
			select {
			case _, ok := <-app.session.Events():
				if !ok {
					goto drained
				}
			case <-sctx.Done():
				goto drained
			}
		}
	}
drained:
	cancelSession()
	select {
	case <-sessionStopped:
	case <-time.After(sessionShutdownTimeout):
	}

	app.terminals.Shutdown(sessionShutdownTimeout)
}
