package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Transport speaks JSON-RPC 2.0 over a byte stream using the LSP base
// protocol: a Content-Length header block, a blank line, then the JSON
// payload. Outbound requests receive monotonically increasing ids; a map
// of id to waiter channel multiplexes responses back to their callers.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	closer io.Closer

	writeMu sync.Mutex

	nextID  atomic.Int64
	mu      sync.Mutex
	pending map[int64]chan *response

	handlers     map[string]NotificationHandler
	onParseError func(err error)

	closed atomic.Bool
	done   chan struct{}
}

// NotificationHandler consumes a server notification.
type NotificationHandler func(method string, params json.RawMessage)

// request is an outbound JSON-RPC message. A nil ID makes it a
// notification.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is an inbound JSON-RPC response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// errorReply is the outbound response to an unsupported server request.
type errorReply struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   *RPCError       `json:"error"`
}

// NewTransport creates a transport over the given stream. closer, if not
// nil, is closed with the transport.
func NewTransport(r io.Reader, w io.Writer, c io.Closer) *Transport {
	return &Transport{
		reader:   bufio.NewReaderSize(r, 64*1024),
		writer:   w,
		closer:   c,
		pending:  make(map[int64]chan *response),
		handlers: make(map[string]NotificationHandler),
		done:     make(chan struct{}),
	}
}

// Start launches the read loop. ctx cancellation stops it.
func (t *Transport) Start(ctx context.Context) {
	go t.readLoop(ctx)
}

// Close shuts the transport down. Pending calls are released with
// ErrShutdown. Close is idempotent.
func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)

	t.mu.Lock()
	t.pending = make(map[int64]chan *response)
	t.mu.Unlock()

	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// IsClosed reports whether the transport has been closed.
func (t *Transport) IsClosed() bool {
	return t.closed.Load()
}

// Call sends a request and waits for its response, honoring ctx
// cancellation and transport shutdown. A late response for an abandoned
// id is dropped by the read loop.
func (t *Transport) Call(ctx context.Context, method string, params, result any) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	id := t.nextID.Add(1)
	ch := make(chan *response, 1)

	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
	}()

	if err := t.send(&request{JSONRPC: "2.0", ID: &id, Method: method, Params: params}); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrShutdown
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("%w: %s result: %v", ErrInvalidResponse, method, err)
			}
		}
		return nil
	}
}

// Notify sends a notification; no response is expected.
func (t *Transport) Notify(method string, params any) error {
	if t.closed.Load() {
		return ErrShutdown
	}
	return t.send(&request{JSONRPC: "2.0", Method: method, Params: params})
}

// OnNotification registers a handler for a server notification method.
// "*" matches any method without a dedicated handler.
func (t *Transport) OnNotification(method string, handler NotificationHandler) {
	t.mu.Lock()
	t.handlers[method] = handler
	t.mu.Unlock()
}

// OnParseError registers a callback for malformed inbound frames. The
// read loop keeps running after a parse failure.
func (t *Transport) OnParseError(fn func(err error)) {
	t.mu.Lock()
	t.onParseError = fn
	t.mu.Unlock()
}

// send frames and writes one message.
func (t *Transport) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := fmt.Fprintf(t.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := t.writer.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// readLoop drains framed messages until EOF, close, or ctx cancellation.
func (t *Transport) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
		}

		body, err := t.readMessage()
		if err != nil {
			if t.closed.Load() || err == io.EOF || err == io.ErrClosedPipe ||
				strings.Contains(err.Error(), "file already closed") {
				return
			}
			t.reportParseError(err)
			continue
		}
		t.dispatch(body)
	}
}

// readMessage reads one framed message. Unknown header fields are
// tolerated; only Content-Length is required.
func (t *Transport) readMessage() ([]byte, error) {
	contentLength := -1
	for {
		line, err := t.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("%w: bad Content-Length %q", ErrInvalidResponse, value)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("%w: missing Content-Length header", ErrInvalidResponse)
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(t.reader, body); err != nil {
		return nil, err
	}
	return body, nil
}

// dispatch routes one message by shape: a response completes its pending
// call, an id-less method is a notification, and a server-originated
// request gets a MethodNotFound reply.
func (t *Transport) dispatch(body []byte) {
	var probe struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		t.reportParseError(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
		return
	}

	switch {
	case len(probe.ID) > 0 && probe.Method == "":
		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			t.reportParseError(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
			return
		}
		t.completeCall(&resp)

	case probe.Method != "" && len(probe.ID) == 0:
		var notif struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(body, &notif); err != nil {
			t.reportParseError(fmt.Errorf("%w: %v", ErrInvalidResponse, err))
			return
		}
		t.handleNotification(notif.Method, notif.Params)

	case probe.Method != "":
		// Server-originated request. The session does not implement any,
		// so reply MethodNotFound to keep the server's state machine sane.
		reply := &errorReply{
			JSONRPC: "2.0",
			ID:      probe.ID,
			Error: &RPCError{
				Code:    CodeMethodNotFound,
				Message: fmt.Sprintf("method not supported: %s", probe.Method),
			},
		}
		_ = t.send(reply)

	default:
		t.reportParseError(fmt.Errorf("%w: message without id or method", ErrInvalidResponse))
	}
}

// completeCall delivers a response to its waiter, if still registered.
func (t *Transport) completeCall(resp *response) {
	if t.closed.Load() {
		return
	}
	t.mu.Lock()
	ch, ok := t.pending[resp.ID]
	if ok {
		delete(t.pending, resp.ID)
	}
	t.mu.Unlock()

	if ok {
		ch <- resp
	}
}

// handleNotification runs the registered handler off the read loop.
func (t *Transport) handleNotification(method string, params json.RawMessage) {
	t.mu.Lock()
	handler, ok := t.handlers[method]
	if !ok {
		handler, ok = t.handlers["*"]
	}
	t.mu.Unlock()

	if ok && handler != nil {
		go handler(method, params)
	}
}

func (t *Transport) reportParseError(err error) {
	t.mu.Lock()
	fn := t.onParseError
	t.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
