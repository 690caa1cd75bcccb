package lsp

import (
	"errors"
	"fmt"
)

// Standard errors surfaced by the LSP session.
var (
	// ErrSpawnFailed indicates the server process could not be started.
	ErrSpawnFailed = errors.New("failed to spawn language server")

	// ErrInitFailed indicates the initialize handshake failed.
	ErrInitFailed = errors.New("language server initialization failed")

	// ErrTimeout indicates a request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrServerCrashed indicates the server process exited unexpectedly.
	ErrServerCrashed = errors.New("language server crashed")

	// ErrNoServer indicates no running server for the language.
	ErrNoServer = errors.New("no server running for language")

	// ErrAlreadyRunning indicates a server is already running for the language.
	ErrAlreadyRunning = errors.New("server already running for language")

	// ErrInvalidResponse indicates a malformed message from the server.
	ErrInvalidResponse = errors.New("invalid response from server")

	// ErrShutdown indicates the transport or session has been shut down.
	ErrShutdown = errors.New("lsp shut down")

	// ErrDocumentNotOpen indicates the uri has no open document.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrDocumentAlreadyOpen indicates the uri is already open.
	ErrDocumentAlreadyOpen = errors.New("document already open")

	// ErrStaleVersion indicates a DidChange with a non-increasing version.
	ErrStaleVersion = errors.New("stale document version")

	// ErrSessionClosed indicates the session task has ended.
	ErrSessionClosed = errors.New("session closed")
)

// RPCError is a JSON-RPC error object from the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC and LSP error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeServerNotInitialized = -32002
	CodeRequestCancelled     = -32800
	CodeContentModified      = -32801
)

// ServerError wraps an error with the language it belongs to.
type ServerError struct {
	LanguageID string
	Err        error
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server %s: %v", e.LanguageID, e.Err)
}

// Unwrap returns the underlying error.
func (e *ServerError) Unwrap() error {
	return e.Err
}
