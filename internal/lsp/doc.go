// Package lsp implements the editor's language server integration: a
// JSON-RPC 2.0 stdio transport with Content-Length framing and request-id
// multiplexing, a subprocess wrapper per language server, and a Session
// that bridges the synchronous UI to the servers through a typed command
// queue and event stream.
//
// The Session is a single long-lived task. It owns the server registry,
// per-document versions, and the diagnostic store; transport goroutines
// hand server notifications back to it through an internal channel so no
// state is shared across goroutines. Requests run with a per-request
// deadline and surface failures as ErrorEvents without ending the task;
// only Shutdown (or context cancellation) does.
package lsp
