package lsp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Command is an editor-originated instruction to the session. The
// concrete types below form a closed set.
type Command interface{ isCommand() }

// StartServer spawns and initializes a server for Config.LanguageID.
type StartServer struct{ Config ServerConfig }

// DidOpen associates a uri with the server for its language and opens it
// at version 1.
type DidOpen struct {
	URI        DocumentURI
	Text       string
	LanguageID string
}

// DidChange sends a full-text change. Version must exceed the current one.
type DidChange struct {
	URI     DocumentURI
	Version int
	Text    string
}

// DidSave notifies the server of a save.
type DidSave struct{ URI DocumentURI }

// DidClose closes the document and clears its diagnostics.
type DidClose struct{ URI DocumentURI }

// HoverRequest asks for hover information at a position.
type HoverRequest struct {
	URI DocumentURI
	Pos Position
}

// DefinitionRequest asks for the definition locations of a symbol.
type DefinitionRequest struct {
	URI DocumentURI
	Pos Position
}

// ReferencesRequest asks for all references to a symbol.
type ReferencesRequest struct {
	URI                DocumentURI
	Pos                Position
	IncludeDeclaration bool
}

// CompletionRequest asks for completion proposals at a position.
type CompletionRequest struct {
	URI DocumentURI
	Pos Position
}

// FormatRequest asks for whole-document formatting edits.
type FormatRequest struct {
	URI     DocumentURI
	Options FormattingOptions
}

// CodeActionRequest asks for code actions over a range.
type CodeActionRequest struct {
	URI   DocumentURI
	Range Range
}

// Shutdown ends the session: pending requests are cancelled, every server
// is driven through shutdown/exit, and the event stream is closed.
type Shutdown struct{}

func (StartServer) isCommand()       {}
func (DidOpen) isCommand()           {}
func (DidChange) isCommand()         {}
func (DidSave) isCommand()           {}
func (DidClose) isCommand()          {}
func (HoverRequest) isCommand()      {}
func (DefinitionRequest) isCommand() {}
func (ReferencesRequest) isCommand() {}
func (CompletionRequest) isCommand() {}
func (FormatRequest) isCommand()     {}
func (CodeActionRequest) isCommand() {}
func (Shutdown) isCommand()          {}

// Event is a session-originated message to the UI. The concrete types
// below form a closed set. Events for a request are delivered at most
// once and strictly after the command that caused them.
type Event interface{ isEvent() }

// ServerStarted reports a successful StartServer.
type ServerStarted struct{ LanguageID string }

// HoverResult carries the response to a HoverRequest. Text is empty when
// the server had nothing to show.
type HoverResult struct {
	URI  DocumentURI
	Text string
}

// DefinitionResult carries definition locations.
type DefinitionResult struct {
	URI       DocumentURI
	Locations []Location
}

// ReferencesResult carries reference locations.
type ReferencesResult struct {
	URI       DocumentURI
	Locations []Location
}

// CompletionResult carries completion proposals.
type CompletionResult struct {
	URI   DocumentURI
	Items []CompletionItem
}

// FormatResult carries formatting edits.
type FormatResult struct {
	URI   DocumentURI
	Edits []TextEdit
}

// CodeActionResult carries proposed code actions.
type CodeActionResult struct {
	URI     DocumentURI
	Actions []CodeAction
}

// DiagnosticsUpdated reports the full current diagnostics for a uri.
// Versions are non-decreasing per uri; stale notifications are dropped.
type DiagnosticsUpdated struct {
	URI         DocumentURI
	Version     int
	Diagnostics []Diagnostic
}

// ErrorEvent surfaces a recoverable failure as a status message.
type ErrorEvent struct{ Message string }

// InfoEvent surfaces informational server chatter.
type InfoEvent struct{ Message string }

func (ServerStarted) isEvent()      {}
func (HoverResult) isEvent()        {}
func (DefinitionResult) isEvent()   {}
func (ReferencesResult) isEvent()   {}
func (CompletionResult) isEvent()   {}
func (FormatResult) isEvent()       {}
func (CodeActionResult) isEvent()   {}
func (DiagnosticsUpdated) isEvent() {}
func (ErrorEvent) isEvent()         {}
func (InfoEvent) isEvent()          {}

// notice is an internal message from transport goroutines and process
// reapers into the session loop, which owns all mutable state.
type notice struct {
	languageID string
	diags      *PublishDiagnosticsParams
	message    string
	parseErr   error
	exited     bool
	exitErr    error
}

// documentState tracks one open document.
type documentState struct {
	languageID string
	version    int
}

// storedDiagnostics is the per-uri diagnostic store entry.
type storedDiagnostics struct {
	version int
	items   []Diagnostic
}

// Session bridges the synchronous UI and a pool of language servers. It
// runs as a single long-lived task consuming a bounded command channel
// and producing an event channel; all registry, document, and diagnostic
// state is confined to that task.
type Session struct {
	cmds   chan Command
	events chan Event
	notifs chan notice
	done   chan struct{}

	spawn   Spawner
	timeout time.Duration
	rootURI DocumentURI

	servers map[string]ServerHandle
	docs    map[DocumentURI]*documentState
	diags   map[DocumentURI]storedDiagnostics

	reqCtx    context.Context
	reqCancel context.CancelFunc
	inflight  sync.WaitGroup
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithRequestTimeout overrides the default 10 second request deadline.
func WithRequestTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.timeout = d }
}

// WithRootURI sets the workspace root hint passed to servers.
func WithRootURI(uri DocumentURI) SessionOption {
	return func(s *Session) { s.rootURI = uri }
}

// WithSpawner replaces the subprocess spawner. Used by tests.
func WithSpawner(spawn Spawner) SessionOption {
	return func(s *Session) { s.spawn = spawn }
}

// NewSession creates a session. Run must be called for commands to be
// processed.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		cmds:    make(chan Command, 64),
		events:  make(chan Event, 256),
		notifs:  make(chan notice, 64),
		done:    make(chan struct{}),
		spawn:   SpawnServer,
		timeout: 10 * time.Second,
		servers: make(map[string]ServerHandle),
		docs:    make(map[DocumentURI]*documentState),
		diags:   make(map[DocumentURI]storedDiagnostics),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send submits a command. The queue is bounded; Send blocks (applying
// backpressure) until there is room, ctx is done, or the session ends.
func (s *Session) Send(ctx context.Context, cmd Command) error {
	select {
	case s.cmds <- cmd:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the event stream. It is closed when the session ends;
// the UI should poll it without blocking.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Diagnostics returns the stored diagnostics for a uri as of the last
// accepted publish. Safe only from the session goroutine or after Run
// returns; the UI should mirror DiagnosticsUpdated events instead.
func (s *Session) Diagnostics(uri DocumentURI) []Diagnostic {
	return s.diags[uri].items
}

// Run processes commands until Shutdown arrives or ctx is cancelled.
// It closes the event stream before returning; no events follow.
func (s *Session) Run(ctx context.Context) {
	s.reqCtx, s.reqCancel = context.WithCancel(ctx)
	defer close(s.events)
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case n := <-s.notifs:
			s.handleNotice(n)
		case cmd := <-s.cmds:
			if _, ok := cmd.(Shutdown); ok {
				s.shutdown()
				return
			}
			s.handleCommand(ctx, cmd)
		}
	}
}

// emit delivers an event to the stream.
func (s *Session) emit(ev Event) {
	s.events <- ev
}

// errorf emits a formatted ErrorEvent.
func (s *Session) errorf(format string, args ...any) {
	s.emit(ErrorEvent{Message: fmt.Sprintf(format, args...)})
}

// handleCommand dispatches one command. Lifecycle and document
// notifications run inline to preserve per-uri ordering; requests run in
// their own goroutines so transport reads never block the loop.
func (s *Session) handleCommand(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case StartServer:
		s.startServer(ctx, c.Config)
	case DidOpen:
		s.didOpen(ctx, c)
	case DidChange:
		s.didChange(ctx, c)
	case DidSave:
		s.didSave(ctx, c)
	case DidClose:
		s.didClose(ctx, c)
	case HoverRequest:
		s.request(c.URI, "hover", func(ctx context.Context, h ServerHandle) (Event, error) {
			res, err := h.Hover(ctx, c.URI, c.Pos)
			if err != nil {
				return nil, err
			}
			return HoverResult{URI: c.URI, Text: res.Text()}, nil
		})
	case DefinitionRequest:
		s.request(c.URI, "definition", func(ctx context.Context, h ServerHandle) (Event, error) {
			locs, err := h.Definition(ctx, c.URI, c.Pos)
			if err != nil {
				return nil, err
			}
			return DefinitionResult{URI: c.URI, Locations: locs}, nil
		})
	case ReferencesRequest:
		s.request(c.URI, "references", func(ctx context.Context, h ServerHandle) (Event, error) {
			locs, err := h.References(ctx, c.URI, c.Pos, c.IncludeDeclaration)
			if err != nil {
				return nil, err
			}
			return ReferencesResult{URI: c.URI, Locations: locs}, nil
		})
	case CompletionRequest:
		s.request(c.URI, "completion", func(ctx context.Context, h ServerHandle) (Event, error) {
			list, err := h.Completion(ctx, c.URI, c.Pos)
			if err != nil {
				return nil, err
			}
			var items []CompletionItem
			if list != nil {
				items = list.Items
			}
			return CompletionResult{URI: c.URI, Items: items}, nil
		})
	case FormatRequest:
		s.request(c.URI, "formatting", func(ctx context.Context, h ServerHandle) (Event, error) {
			edits, err := h.Format(ctx, c.URI, c.Options)
			if err != nil {
				return nil, err
			}
			return FormatResult{URI: c.URI, Edits: edits}, nil
		})
	case CodeActionRequest:
		diags := s.diags[c.URI].items
		s.request(c.URI, "code action", func(ctx context.Context, h ServerHandle) (Event, error) {
			actions, err := h.CodeActions(ctx, c.URI, c.Range, diags)
			if err != nil {
				return nil, err
			}
			return CodeActionResult{URI: c.URI, Actions: actions}, nil
		})
	default:
		s.errorf("unhandled command %T", cmd)
	}
}

// startServer spawns and initializes a server, registering it by
// language. Spawn failures leave the language unregistered.
func (s *Session) startServer(ctx context.Context, cfg ServerConfig) {
	lang := cfg.LanguageID
	if lang == "" {
		s.errorf("start server: missing language id")
		return
	}
	if _, ok := s.servers[lang]; ok {
		s.errorf("%v: %s", ErrAlreadyRunning, lang)
		return
	}
	if cfg.RootURI == "" {
		cfg.RootURI = s.rootURI
	}

	spawnCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	handle, err := s.spawn(spawnCtx, cfg, s)
	if err != nil {
		s.errorf("start %s server: %v", lang, err)
		return
	}
	s.servers[lang] = handle
	s.watchExit(handle)
	s.emit(ServerStarted{LanguageID: lang})
}

// watchExit forwards process termination into the session loop.
func (s *Session) watchExit(h ServerHandle) {
	go func() {
		err, ok := <-h.Exited()
		if !ok {
			return
		}
		select {
		case s.notifs <- notice{languageID: h.LanguageID(), exited: true, exitErr: err}:
		case <-s.done:
		}
	}()
}

func (s *Session) didOpen(ctx context.Context, c DidOpen) {
	if _, ok := s.docs[c.URI]; ok {
		s.errorf("%v: %s", ErrDocumentAlreadyOpen, c.URI)
		return
	}
	handle, ok := s.servers[c.LanguageID]
	if !ok {
		s.errorf("%v: %s", ErrNoServer, c.LanguageID)
		return
	}

	doc := &documentState{languageID: c.LanguageID, version: 1}
	if err := handle.DidOpen(ctx, TextDocumentItem{
		URI:        c.URI,
		LanguageID: c.LanguageID,
		Version:    doc.version,
		Text:       c.Text,
	}); err != nil {
		s.errorf("open %s: %v", c.URI, err)
		return
	}
	s.docs[c.URI] = doc
}

func (s *Session) didChange(ctx context.Context, c DidChange) {
	doc, handle, err := s.lookup(c.URI)
	if err != nil {
		s.errorf("change %s: %v", c.URI, err)
		return
	}
	if c.Version <= doc.version {
		s.errorf("change %s: %v: got %d, have %d", c.URI, ErrStaleVersion, c.Version, doc.version)
		return
	}
	if err := handle.DidChange(ctx, c.URI, c.Version, c.Text); err != nil {
		s.errorf("change %s: %v", c.URI, err)
		return
	}
	doc.version = c.Version
}

func (s *Session) didSave(ctx context.Context, c DidSave) {
	_, handle, err := s.lookup(c.URI)
	if err != nil {
		s.errorf("save %s: %v", c.URI, err)
		return
	}
	if err := handle.DidSave(ctx, c.URI); err != nil {
		s.errorf("save %s: %v", c.URI, err)
	}
}

func (s *Session) didClose(ctx context.Context, c DidClose) {
	_, handle, err := s.lookup(c.URI)
	if err != nil {
		s.errorf("close %s: %v", c.URI, err)
		return
	}
	if err := handle.DidClose(ctx, c.URI); err != nil {
		s.errorf("close %s: %v", c.URI, err)
	}
	delete(s.docs, c.URI)
	delete(s.diags, c.URI)
}

// lookup resolves a uri to its document state and server handle.
func (s *Session) lookup(uri DocumentURI) (*documentState, ServerHandle, error) {
	doc, ok := s.docs[uri]
	if !ok {
		return nil, nil, ErrDocumentNotOpen
	}
	handle, ok := s.servers[doc.languageID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoServer, doc.languageID)
	}
	return doc, handle, nil
}

// request runs one server request off the loop with the session deadline.
// The result event is delivered at most once; failures become ErrorEvents
// and never tear the session down.
func (s *Session) request(uri DocumentURI, what string, fn func(context.Context, ServerHandle) (Event, error)) {
	_, handle, err := s.lookup(uri)
	if err != nil {
		s.errorf("%s %s: %v", what, uri, err)
		return
	}

	timeout := s.timeout
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(s.reqCtx, timeout)
		defer cancel()

		ev, err := fn(ctx, handle)
		if err != nil {
			s.errorf("%s %s: %v", what, uri, s.describeRequestError(err, timeout))
			return
		}
		s.emit(ev)
	}()
}

// describeRequestError maps low-level failures onto the session error
// taxonomy. A deadline expiry is a local timeout; a transport shutdown
// mid-request means the server went away.
func (s *Session) describeRequestError(err error, timeout time.Duration) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("request cancelled: %w", ErrShutdown)
	case errors.Is(err, ErrShutdown):
		return ErrServerCrashed
	default:
		return err
	}
}

// handleNotice folds a server-originated notice into session state.
func (s *Session) handleNotice(n notice) {
	switch {
	case n.exited:
		s.serverExited(n.languageID, n.exitErr)
	case n.diags != nil:
		s.publishDiagnostics(*n.diags)
	case n.parseErr != nil:
		s.errorf("%s: %v", n.languageID, n.parseErr)
	case n.message != "":
		s.emit(InfoEvent{Message: fmt.Sprintf("%s: %s", n.languageID, n.message)})
	}
}

// serverExited evicts a crashed server. Documents keep their association
// so later commands fail with NoServer rather than silently vanishing.
func (s *Session) serverExited(lang string, exitErr error) {
	if _, ok := s.servers[lang]; !ok {
		return // already shut down deliberately
	}
	delete(s.servers, lang)
	if exitErr != nil {
		s.errorf("%v: %s: %v", ErrServerCrashed, lang, exitErr)
	} else {
		s.errorf("%v: %s", ErrServerCrashed, lang)
	}
}

// publishDiagnostics applies the recency rule: a notification older than
// the stored diagnostics or the document's current version is discarded,
// otherwise the store is overwritten wholesale and the UI notified.
func (s *Session) publishDiagnostics(p PublishDiagnosticsParams) {
	version := 0
	if p.Version != nil {
		version = *p.Version
		if stored, ok := s.diags[p.URI]; ok && version < stored.version {
			return
		}
		if doc, ok := s.docs[p.URI]; ok && version < doc.version {
			return
		}
	} else if stored, ok := s.diags[p.URI]; ok {
		version = stored.version
	}

	s.diags[p.URI] = storedDiagnostics{version: version, items: p.Diagnostics}
	s.emit(DiagnosticsUpdated{
		URI:         p.URI,
		Version:     version,
		Diagnostics: p.Diagnostics,
	})
}

// PublishDiagnostics implements NotificationSink.
func (s *Session) PublishDiagnostics(languageID string, params PublishDiagnosticsParams) {
	p := params
	select {
	case s.notifs <- notice{languageID: languageID, diags: &p}:
	case <-s.done:
	}
}

// ServerMessage implements NotificationSink.
func (s *Session) ServerMessage(languageID, message string) {
	select {
	case s.notifs <- notice{languageID: languageID, message: message}:
	case <-s.done:
	}
}

// ParseError implements NotificationSink.
func (s *Session) ParseError(languageID string, err error) {
	select {
	case s.notifs <- notice{languageID: languageID, parseErr: err}:
	case <-s.done:
	}
}

// shutdown cancels in-flight requests, waits for their events to land,
// then drives every server through the shutdown/exit handshake.
func (s *Session) shutdown() {
	s.reqCancel()
	s.inflight.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for lang, handle := range s.servers {
		if err := handle.Shutdown(ctx); err != nil {
			s.errorf("shutdown %s: %v", lang, err)
		}
		delete(s.servers, lang)
	}
}

var _ NotificationSink = (*Session)(nil)
