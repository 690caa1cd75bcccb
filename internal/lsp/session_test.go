package lsp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeServer is a scripted ServerHandle for session tests. It records
// every call and answers requests from canned fields.
type fakeServer struct {
	lang   string
	sink   NotificationSink
	exited chan error

	mu        sync.Mutex
	opens     []TextDocumentItem
	changes   []int
	saves     []DocumentURI
	closes    []DocumentURI
	shutdowns int

	hoverText string
	hoverErr  error
	hoverWait bool // block until ctx is done, then return ctx.Err()
}

func newFakeServer(lang string, sink NotificationSink) *fakeServer {
	return &fakeServer{lang: lang, sink: sink, exited: make(chan error, 1)}
}

func (f *fakeServer) LanguageID() string { return f.lang }

func (f *fakeServer) Exited() <-chan error { return f.exited }

func (f *fakeServer) crash(err error) { f.exited <- err }

func (f *fakeServer) DidOpen(ctx context.Context, item TextDocumentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens = append(f.opens, item)
	return nil
}

func (f *fakeServer) DidChange(ctx context.Context, uri DocumentURI, version int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, version)
	return nil
}

func (f *fakeServer) DidSave(ctx context.Context, uri DocumentURI) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, uri)
	return nil
}

func (f *fakeServer) DidClose(ctx context.Context, uri DocumentURI) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes = append(f.closes, uri)
	return nil
}

func (f *fakeServer) Hover(ctx context.Context, uri DocumentURI, pos Position) (*Hover, error) {
	if f.hoverWait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.hoverErr != nil {
		return nil, f.hoverErr
	}
	contents := `{"kind":"markdown","value":"` + f.hoverText + `"}`
	return &Hover{Contents: []byte(contents)}, nil
}

func (f *fakeServer) Definition(ctx context.Context, uri DocumentURI, pos Position) ([]Location, error) {
	return []Location{{URI: uri, Range: Range{Start: pos, End: pos}}}, nil
}

func (f *fakeServer) References(ctx context.Context, uri DocumentURI, pos Position, includeDecl bool) ([]Location, error) {
	return []Location{{URI: uri}}, nil
}

func (f *fakeServer) Completion(ctx context.Context, uri DocumentURI, pos Position) (*CompletionList, error) {
	return &CompletionList{Items: []CompletionItem{{Label: "println"}}}, nil
}

func (f *fakeServer) Format(ctx context.Context, uri DocumentURI, opts FormattingOptions) ([]TextEdit, error) {
	return []TextEdit{{NewText: "formatted"}}, nil
}

func (f *fakeServer) CodeActions(ctx context.Context, uri DocumentURI, rng Range, diags []Diagnostic) ([]CodeAction, error) {
	return []CodeAction{{Title: "fix it"}}, nil
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	return nil
}

// await polls until cond holds under the server lock. Document
// notifications are handled inline by the session loop, so waiting for
// one to reach the server orders later notices after it.
func (f *fakeServer) await(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		f.mu.Lock()
		ok := cond()
		f.mu.Unlock()
		if ok {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s never reached the server", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var _ ServerHandle = (*fakeServer)(nil)

// sessionHarness runs a session against fake servers and stops it on
// test cleanup.
type sessionHarness struct {
	session *Session
	cancel  context.CancelFunc
	stopped chan struct{}

	mu      sync.Mutex
	spawned map[string]*fakeServer
}

func newSessionHarness(t *testing.T, opts ...SessionOption) *sessionHarness {
	t.Helper()

	h := &sessionHarness{spawned: make(map[string]*fakeServer)}
	spawn := func(ctx context.Context, cfg ServerConfig, sink NotificationSink) (ServerHandle, error) {
		f := newFakeServer(cfg.LanguageID, sink)
		h.mu.Lock()
		h.spawned[cfg.LanguageID] = f
		h.mu.Unlock()
		return f, nil
	}

	h.session = NewSession(append([]SessionOption{WithSpawner(spawn)}, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.stopped = make(chan struct{})
	go func() {
		h.session.Run(ctx)
		close(h.stopped)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.stopped:
		case <-time.After(2 * time.Second):
			t.Error("session did not stop")
		}
		for range h.session.Events() {
		}
	})
	return h
}

func (h *sessionHarness) send(t *testing.T, cmd Command) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.session.Send(ctx, cmd); err != nil {
		t.Fatalf("Send(%T) = %v", cmd, err)
	}
}

func (h *sessionHarness) server(t *testing.T, lang string) *fakeServer {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.spawned[lang]
	if !ok {
		t.Fatalf("no %s server spawned", lang)
	}
	return f
}

// nextEvent pops one event or fails the test.
func (h *sessionHarness) nextEvent(t *testing.T) Event {
	t.Helper()
	select {
	case ev, ok := <-h.session.Events():
		if !ok {
			t.Fatal("event stream closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event within deadline")
		return nil
	}
}

// expectError pops one event and asserts it is an ErrorEvent mentioning
// substr.
func (h *sessionHarness) expectError(t *testing.T, substr string) {
	t.Helper()
	ev := h.nextEvent(t)
	ee, ok := ev.(ErrorEvent)
	if !ok {
		t.Fatalf("event = %#v, want ErrorEvent", ev)
	}
	if !strings.Contains(ee.Message, substr) {
		t.Fatalf("error %q does not mention %q", ee.Message, substr)
	}
}

// startGo boots a go server and consumes the ServerStarted event.
func (h *sessionHarness) startGo(t *testing.T) *fakeServer {
	t.Helper()
	h.send(t, StartServer{Config: ServerConfig{LanguageID: "go", Command: "gopls"}})
	ev := h.nextEvent(t)
	if started, ok := ev.(ServerStarted); !ok || started.LanguageID != "go" {
		t.Fatalf("event = %#v, want ServerStarted{go}", ev)
	}
	return h.server(t, "go")
}

func TestSessionStartServer(t *testing.T) {
	h := newSessionHarness(t)
	h.startGo(t)
}

func TestSessionStartServerAlreadyRunning(t *testing.T) {
	h := newSessionHarness(t)
	h.startGo(t)

	h.send(t, StartServer{Config: ServerConfig{LanguageID: "go", Command: "gopls"}})
	h.expectError(t, ErrAlreadyRunning.Error())
}

func TestSessionDidOpenNoServer(t *testing.T) {
	h := newSessionHarness(t)

	h.send(t, DidOpen{URI: "file:///x.rs", Text: "fn main() {}", LanguageID: "rust"})
	h.expectError(t, ErrNoServer.Error())
}

func TestSessionDocumentVersioning(t *testing.T) {
	h := newSessionHarness(t)
	srv := h.startGo(t)

	uri := DocumentURI("file:///main.go")
	h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})
	h.send(t, DidChange{URI: uri, Version: 2, Text: "package main // v2"})

	// Non-increasing versions are rejected and never reach the server.
	h.send(t, DidChange{URI: uri, Version: 2, Text: "repeat"})
	h.expectError(t, ErrStaleVersion.Error())
	h.send(t, DidChange{URI: uri, Version: 1, Text: "regress"})
	h.expectError(t, ErrStaleVersion.Error())

	// A later version is accepted again.
	h.send(t, DidChange{URI: uri, Version: 5, Text: "package main // v5"})
	h.send(t, DidSave{URI: uri})

	// Fence on the save so all inline notifications have been handled.
	srv.await(t, "save", func() bool { return len(srv.saves) == 1 })

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.opens) != 1 || srv.opens[0].Version != 1 {
		t.Errorf("opens = %+v, want one open at version 1", srv.opens)
	}
	if len(srv.changes) != 2 || srv.changes[0] != 2 || srv.changes[1] != 5 {
		t.Errorf("change versions = %v, want [2 5]", srv.changes)
	}
}

func TestSessionOpenTwiceRejected(t *testing.T) {
	h := newSessionHarness(t)
	h.startGo(t)

	uri := DocumentURI("file:///main.go")
	h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})
	h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})
	h.expectError(t, ErrDocumentAlreadyOpen.Error())
}

func TestSessionHoverRoundTrip(t *testing.T) {
	h := newSessionHarness(t)
	srv := h.startGo(t)
	srv.hoverText = "func Println(a ...any)"

	uri := DocumentURI("file:///main.go")
	h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})
	h.send(t, HoverRequest{URI: uri, Pos: Position{Line: 3, Character: 7}})

	ev := h.nextEvent(t)
	hr, ok := ev.(HoverResult)
	if !ok {
		t.Fatalf("event = %#v, want HoverResult", ev)
	}
	if hr.URI != uri || hr.Text != "func Println(a ...any)" {
		t.Errorf("hover = %+v", hr)
	}
}

func TestSessionRequestOnUnopenedDocument(t *testing.T) {
	h := newSessionHarness(t)
	h.startGo(t)

	h.send(t, HoverRequest{URI: "file:///nope.go"})
	h.expectError(t, ErrDocumentNotOpen.Error())
}

func TestSessionRequestTimeout(t *testing.T) {
	h := newSessionHarness(t, WithRequestTimeout(30*time.Millisecond))
	srv := h.startGo(t)
	srv.hoverWait = true

	uri := DocumentURI("file:///main.go")
	h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})
	h.send(t, HoverRequest{URI: uri})

	h.expectError(t, ErrTimeout.Error())
}

func TestSessionRequestFailureIsRecoverable(t *testing.T) {
	h := newSessionHarness(t)
	srv := h.startGo(t)
	srv.hoverErr = &RPCError{Code: CodeInternalError, Message: "boom"}

	uri := DocumentURI("file:///main.go")
	h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})
	h.send(t, HoverRequest{URI: uri})
	h.expectError(t, "boom")

	// The same document still serves later requests.
	srv.hoverErr = nil
	srv.hoverText = "recovered"
	h.send(t, HoverRequest{URI: uri})
	ev := h.nextEvent(t)
	if hr, ok := ev.(HoverResult); !ok || hr.Text != "recovered" {
		t.Fatalf("event = %#v, want HoverResult{recovered}", ev)
	}
}

func TestSessionDiagnosticsRecency(t *testing.T) {
	scenarios := []struct {
		name     string
		versions []int
	}{
		{"in order", []int{1, 2}},
		{"out of order", []int{2, 1}},
	}
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			h := newSessionHarness(t)
			srv := h.startGo(t)

			uri := DocumentURI("file:///main.go")
			h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})
			h.send(t, DidChange{URI: uri, Version: 2, Text: "package main // v2"})

			// The session loop interleaves commands and notices, so
			// make sure the change landed before publishing against it.
			srv.await(t, "change", func() bool { return len(srv.changes) == 1 })

			for _, v := range sc.versions {
				version := v
				srv.sink.PublishDiagnostics("go", PublishDiagnosticsParams{
					URI:     uri,
					Version: &version,
					Diagnostics: []Diagnostic{
						{Message: "diag", Severity: SeverityError},
					},
				})
			}
			// Fence: notices are handled in order, so this message
			// arrives after both publishes.
			srv.sink.ServerMessage("go", "fence")

			var updates []DiagnosticsUpdated
			for {
				ev := h.nextEvent(t)
				if _, ok := ev.(InfoEvent); ok {
					break
				}
				du, ok := ev.(DiagnosticsUpdated)
				if !ok {
					t.Fatalf("event = %#v, want DiagnosticsUpdated or fence", ev)
				}
				updates = append(updates, du)
			}

			if len(updates) != 1 {
				t.Fatalf("got %d diagnostics updates, want 1 (stale dropped)", len(updates))
			}
			if updates[0].Version != 2 || len(updates[0].Diagnostics) != 1 {
				t.Errorf("update = %+v, want version 2 with one diagnostic", updates[0])
			}
		})
	}
}

func TestSessionDidCloseClearsDiagnostics(t *testing.T) {
	h := newSessionHarness(t)
	srv := h.startGo(t)

	uri := DocumentURI("file:///main.go")
	h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})

	version := 1
	srv.sink.PublishDiagnostics("go", PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: []Diagnostic{{Message: "unused import"}},
	})
	if _, ok := h.nextEvent(t).(DiagnosticsUpdated); !ok {
		t.Fatal("expected DiagnosticsUpdated")
	}

	h.send(t, DidClose{URI: uri})

	// The document is gone: later requests must fail.
	h.send(t, HoverRequest{URI: uri})
	h.expectError(t, ErrDocumentNotOpen.Error())

	srv.mu.Lock()
	closed := len(srv.closes)
	srv.mu.Unlock()
	if closed != 1 {
		t.Errorf("server saw %d closes, want 1", closed)
	}
}

func TestSessionCrashEviction(t *testing.T) {
	h := newSessionHarness(t)
	srv := h.startGo(t)

	uri := DocumentURI("file:///main.go")
	h.send(t, DidOpen{URI: uri, Text: "package main", LanguageID: "go"})

	srv.crash(errors.New("signal: killed"))
	h.expectError(t, ErrServerCrashed.Error())

	// The language is evicted; the document keeps its association so the
	// failure mode is explicit.
	h.send(t, HoverRequest{URI: uri})
	h.expectError(t, ErrNoServer.Error())

	// Restart succeeds after eviction.
	h.startGo(t)
}

func TestSessionShutdownClosesEventStream(t *testing.T) {
	h := newSessionHarness(t)
	srv := h.startGo(t)

	h.send(t, Shutdown{})

	select {
	case <-h.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop on Shutdown")
	}

	// The stream drains and closes.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-h.session.Events():
			if !ok {
				goto closed
			}
		case <-deadline:
			t.Fatal("event stream never closed")
		}
	}
closed:

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.shutdowns != 1 {
		t.Errorf("server shutdowns = %d, want 1", srv.shutdowns)
	}
}

func TestSessionSendAfterShutdown(t *testing.T) {
	h := newSessionHarness(t)
	h.send(t, Shutdown{})
	<-h.stopped

	err := h.session.Send(context.Background(), HoverRequest{URI: "file:///x.go"})
	if !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Send after shutdown = %v, want ErrSessionClosed", err)
	}
}
