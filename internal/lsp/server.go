package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// ServerConfig describes how to start a language server.
type ServerConfig struct {
	// LanguageID names the language this server handles, e.g. "go".
	LanguageID string

	// Command is the executable to run.
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables as KEY=VALUE pairs.
	Env []string

	// RootURI hints the workspace root to the server.
	RootURI DocumentURI

	// InitializationOptions are passed opaquely during initialize.
	InitializationOptions any
}

// NotificationSink receives server-originated notifications routed out of
// transport goroutines. The session implements it.
type NotificationSink interface {
	// PublishDiagnostics delivers a diagnostics notification.
	PublishDiagnostics(languageID string, params PublishDiagnosticsParams)

	// ServerMessage delivers a window/showMessage or window/logMessage.
	ServerMessage(languageID string, message string)

	// ParseError reports a malformed inbound frame.
	ParseError(languageID string, err error)
}

// ServerHandle is the session's view of one running language server.
// *Server implements it; tests substitute fakes.
type ServerHandle interface {
	LanguageID() string

	DidOpen(ctx context.Context, item TextDocumentItem) error
	DidChange(ctx context.Context, uri DocumentURI, version int, text string) error
	DidSave(ctx context.Context, uri DocumentURI) error
	DidClose(ctx context.Context, uri DocumentURI) error

	Hover(ctx context.Context, uri DocumentURI, pos Position) (*Hover, error)
	Definition(ctx context.Context, uri DocumentURI, pos Position) ([]Location, error)
	References(ctx context.Context, uri DocumentURI, pos Position, includeDecl bool) ([]Location, error)
	Completion(ctx context.Context, uri DocumentURI, pos Position) (*CompletionList, error)
	Format(ctx context.Context, uri DocumentURI, opts FormattingOptions) ([]TextEdit, error)
	CodeActions(ctx context.Context, uri DocumentURI, rng Range, diags []Diagnostic) ([]CodeAction, error)

	// Shutdown drives the shutdown/exit handshake and reaps the process.
	Shutdown(ctx context.Context) error

	// Exited yields the process exit error once the server terminates.
	Exited() <-chan error
}

// Spawner starts a server for a config. The default spawner launches a
// subprocess; tests inject in-memory fakes.
type Spawner func(ctx context.Context, cfg ServerConfig, sink NotificationSink) (ServerHandle, error)

// Server is a running language server subprocess with its JSON-RPC
// transport. It is a thin RPC wrapper: document and diagnostic state
// belong to the session.
type Server struct {
	config ServerConfig

	cmd       *exec.Cmd
	transport *Transport

	serverInfo *ServerInfo

	exitCh    chan error
	closeOnce sync.Once
}

// SpawnServer starts the configured subprocess, wires its transport, and
// performs the initialize handshake. It is the default Spawner.
func SpawnServer(ctx context.Context, cfg ServerConfig, sink NotificationSink) (ServerHandle, error) {
	s := &Server{
		config: cfg,
		exitCh: make(chan error, 1),
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	if cfg.RootURI != "" {
		cmd.Dir = URIToFilePath(cfg.RootURI)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", ErrSpawnFailed, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawnFailed, err)
	}
	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailed, cfg.Command, err)
	}

	s.cmd = cmd
	// Closing the transport closes stdin, which tells the server to exit.
	s.transport = NewTransport(stdout, stdin, stdin)
	s.registerNotifications(sink)
	s.transport.Start(ctx)

	go func() {
		err := cmd.Wait()
		s.transport.Close()
		s.exitCh <- err
		close(s.exitCh)
	}()

	if err := s.initialize(ctx); err != nil {
		s.kill()
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}
	return s, nil
}

// NewServerWithTransport wraps an existing transport, bypassing process
// management. Used by tests that script the peer over pipes.
func NewServerWithTransport(cfg ServerConfig, t *Transport, sink NotificationSink) *Server {
	s := &Server{
		config:    cfg,
		transport: t,
		exitCh:    make(chan error, 1),
	}
	s.registerNotifications(sink)
	return s
}

// LanguageID returns the language this server handles.
func (s *Server) LanguageID() string {
	return s.config.LanguageID
}

// Info returns the server's self-reported identity, if any.
func (s *Server) Info() *ServerInfo {
	return s.serverInfo
}

// Exited yields the process exit error once the server terminates.
func (s *Server) Exited() <-chan error {
	return s.exitCh
}

// initialize performs the initialize/initialized handshake.
func (s *Server) initialize(ctx context.Context) error {
	params := InitializeParams{
		ProcessID:             os.Getpid(),
		RootURI:               s.config.RootURI,
		Capabilities:          DefaultClientCapabilities(),
		InitializationOptions: s.config.InitializationOptions,
	}
	if s.config.RootURI != "" {
		params.WorkspaceFolders = []WorkspaceFolder{{
			URI:  s.config.RootURI,
			Name: "workspace",
		}}
	}

	var result InitializeResult
	if err := s.transport.Call(ctx, "initialize", params, &result); err != nil {
		return err
	}
	s.serverInfo = result.ServerInfo

	return s.transport.Notify("initialized", struct{}{})
}

// registerNotifications routes server notifications into the sink.
func (s *Server) registerNotifications(sink NotificationSink) {
	if sink == nil {
		return
	}
	lang := s.config.LanguageID

	s.transport.OnNotification("textDocument/publishDiagnostics",
		func(method string, params json.RawMessage) {
			var p PublishDiagnosticsParams
			if err := json.Unmarshal(params, &p); err != nil {
				sink.ParseError(lang, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, method, err))
				return
			}
			sink.PublishDiagnostics(lang, p)
		})

	forwardMessage := func(method string, params json.RawMessage) {
		var p ShowMessageParams
		if err := json.Unmarshal(params, &p); err != nil {
			return
		}
		sink.ServerMessage(lang, p.Message)
	}
	s.transport.OnNotification("window/showMessage", forwardMessage)
	s.transport.OnNotification("window/logMessage", forwardMessage)

	s.transport.OnParseError(func(err error) {
		sink.ParseError(lang, err)
	})
}

// DidOpen sends textDocument/didOpen.
func (s *Server) DidOpen(ctx context.Context, item TextDocumentItem) error {
	return s.transport.Notify("textDocument/didOpen", DidOpenTextDocumentParams{TextDocument: item})
}

// DidChange sends a full-content textDocument/didChange.
func (s *Server) DidChange(ctx context.Context, uri DocumentURI, version int, text string) error {
	return s.transport.Notify("textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument: VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: TextDocumentIdentifier{URI: uri},
			Version:                version,
		},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: text}},
	})
}

// DidSave sends textDocument/didSave.
func (s *Server) DidSave(ctx context.Context, uri DocumentURI) error {
	return s.transport.Notify("textDocument/didSave", DidSaveTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// DidClose sends textDocument/didClose.
func (s *Server) DidClose(ctx context.Context, uri DocumentURI) error {
	return s.transport.Notify("textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// Hover requests textDocument/hover. A null result is not an error.
func (s *Server) Hover(ctx context.Context, uri DocumentURI, pos Position) (*Hover, error) {
	var result *Hover
	err := s.transport.Call(ctx, "textDocument/hover", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}, &result)
	return result, err
}

// Definition requests textDocument/definition.
func (s *Server) Definition(ctx context.Context, uri DocumentURI, pos Position) ([]Location, error) {
	var result []Location
	err := s.transport.Call(ctx, "textDocument/definition", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}, &result)
	return result, err
}

// References requests textDocument/references.
func (s *Server) References(ctx context.Context, uri DocumentURI, pos Position, includeDecl bool) ([]Location, error) {
	var result []Location
	err := s.transport.Call(ctx, "textDocument/references", ReferenceParams{
		TextDocumentPositionParams: TextDocumentPositionParams{
			TextDocument: TextDocumentIdentifier{URI: uri},
			Position:     pos,
		},
		Context: ReferenceContext{IncludeDeclaration: includeDecl},
	}, &result)
	return result, err
}

// Completion requests textDocument/completion.
func (s *Server) Completion(ctx context.Context, uri DocumentURI, pos Position) (*CompletionList, error) {
	var result CompletionList
	err := s.transport.Call(ctx, "textDocument/completion", TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Format requests textDocument/formatting.
func (s *Server) Format(ctx context.Context, uri DocumentURI, opts FormattingOptions) ([]TextEdit, error) {
	var result []TextEdit
	err := s.transport.Call(ctx, "textDocument/formatting", DocumentFormattingParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Options:      opts,
	}, &result)
	return result, err
}

// CodeActions requests textDocument/codeAction.
func (s *Server) CodeActions(ctx context.Context, uri DocumentURI, rng Range, diags []Diagnostic) ([]CodeAction, error) {
	var result []CodeAction
	err := s.transport.Call(ctx, "textDocument/codeAction", CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Range:        rng,
		Context:      CodeActionContext{Diagnostics: diags},
	}, &result)
	return result, err
}

// Shutdown drives the shutdown request and exit notification, then tears
// the transport down. The process reaper delivers the exit status.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if !s.transport.IsClosed() {
			err = s.transport.Call(ctx, "shutdown", nil, nil)
			_ = s.transport.Notify("exit", nil)
		}
		s.transport.Close()
		if s.cmd != nil && s.cmd.Process != nil {
			// Give the process a moment to honor exit before killing it.
			select {
			case <-s.exitCh:
			case <-time.After(2 * time.Second):
				_ = s.cmd.Process.Kill()
			case <-ctx.Done():
				_ = s.cmd.Process.Kill()
			}
		}
	})
	return err
}

// kill force-terminates the subprocess after a failed startup.
func (s *Server) kill() {
	s.transport.Close()
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

var _ ServerHandle = (*Server)(nil)
