package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// transportHarness wires a Transport to scripted peer pipes.
type transportHarness struct {
	tr *Transport

	// fromClient reads bytes the transport wrote.
	fromClient *io.PipeReader
	// toClient writes bytes for the transport to read.
	toClient *io.PipeWriter
}

func newTransportHarness(t *testing.T) *transportHarness {
	t.Helper()

	clientIn, serverOut := io.Pipe() // server -> client
	serverIn, clientOut := io.Pipe() // client -> server

	tr := NewTransport(clientIn, clientOut, nil)
	h := &transportHarness{tr: tr, fromClient: serverIn, toClient: serverOut}

	t.Cleanup(func() {
		tr.Close()
		clientIn.Close()
		clientOut.Close()
		serverIn.Close()
		serverOut.Close()
	})
	return h
}

// sendFrame writes a framed payload, optionally with extra header fields.
func (h *transportHarness) sendFrame(t *testing.T, payload string, extraHeaders ...string) {
	t.Helper()
	var sb strings.Builder
	for _, eh := range extraHeaders {
		sb.WriteString(eh)
		sb.WriteString("\r\n")
	}
	fmt.Fprintf(&sb, "Content-Length: %d\r\n\r\n%s", len(payload), payload)
	if _, err := h.toClient.Write([]byte(sb.String())); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

// sendFrameErr is the goroutine-safe variant of sendFrame.
func (h *transportHarness) sendFrameErr(payload string) error {
	frame := fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(payload), payload)
	_, err := h.toClient.Write([]byte(frame))
	return err
}

// readFrame reads one framed message the transport wrote.
func (h *transportHarness) readFrame(t *testing.T) []byte {
	t.Helper()
	body, err := h.readFrameErr()
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	return body
}

// readFrameErr is the goroutine-safe variant of readFrame.
func (h *transportHarness) readFrameErr() ([]byte, error) {
	// Read headers byte-wise until the blank line.
	var header []byte
	for !strings.HasSuffix(string(header), "\r\n\r\n") {
		b := make([]byte, 1)
		if _, err := h.fromClient.Read(b); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		header = append(header, b[0])
	}
	var length int
	for _, line := range strings.Split(strings.TrimSpace(string(header)), "\r\n") {
		if n, _ := fmt.Sscanf(line, "Content-Length: %d", &length); n == 1 {
			break
		}
	}
	if length == 0 {
		return nil, fmt.Errorf("no Content-Length in header %q", header)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(h.fromClient, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func TestTransportNotifyFraming(t *testing.T) {
	h := newTransportHarness(t)

	// Read concurrently: the transport writes to an unbuffered pipe, so
	// Notify blocks until the frame is consumed.
	type frameResult struct {
		body []byte
		err  error
	}
	frames := make(chan frameResult, 1)
	go func() {
		body, err := h.readFrameErr()
		frames <- frameResult{body, err}
	}()

	if err := h.tr.Notify("test/ping", map[string]string{"msg": "hello"}); err != nil {
		t.Fatalf("Notify error = %v", err)
	}

	fr := <-frames
	if fr.err != nil {
		t.Fatalf("readFrame: %v", fr.err)
	}
	body := fr.body
	var got struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if got.JSONRPC != "2.0" || got.Method != "test/ping" {
		t.Errorf("frame = %s", body)
	}
	if len(got.ID) != 0 {
		t.Errorf("notification must not carry an id: %s", body)
	}
}

func TestTransportCallRoundTrip(t *testing.T) {
	h := newTransportHarness(t)
	h.tr.Start(context.Background())

	// Scripted peer: answer the request by echoing its id.
	go func() {
		body, err := h.readFrameErr()
		if err != nil {
			return
		}
		var req struct {
			ID     int64  `json:"id"`
			Method string `json:"method"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return
		}
		h.sendFrameErr(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{"answer":42}}`, req.ID))
	}()

	var result struct {
		Answer int `json:"answer"`
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.tr.Call(ctx, "test/ask", nil, &result); err != nil {
		t.Fatalf("Call error = %v", err)
	}
	if result.Answer != 42 {
		t.Errorf("answer = %d, want 42", result.Answer)
	}
}

func TestTransportCallRPCError(t *testing.T) {
	h := newTransportHarness(t)
	h.tr.Start(context.Background())

	go func() {
		body, err := h.readFrameErr()
		if err != nil {
			return
		}
		var req struct {
			ID int64 `json:"id"`
		}
		json.Unmarshal(body, &req)
		h.sendFrameErr(fmt.Sprintf(
			`{"jsonrpc":"2.0","id":%d,"error":{"code":-32601,"message":"nope"}}`, req.ID))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := h.tr.Call(ctx, "test/ask", nil, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("Call error = %v, want *RPCError", err)
	}
	if rpcErr.Code != CodeMethodNotFound || rpcErr.Message != "nope" {
		t.Errorf("rpc error = %+v", rpcErr)
	}
}

func TestTransportExtraHeadersTolerated(t *testing.T) {
	h := newTransportHarness(t)
	h.tr.Start(context.Background())

	var mu sync.Mutex
	var got []string
	h.tr.OnNotification("test/note", func(method string, params json.RawMessage) {
		mu.Lock()
		got = append(got, string(params))
		mu.Unlock()
	})

	h.sendFrame(t, `{"jsonrpc":"2.0","method":"test/note","params":{"n":1}}`,
		"Content-Type: application/vscode-jsonrpc; charset=utf-8",
		"X-Custom: whatever")

	// Two messages written in one burst must both be parsed.
	p1 := `{"jsonrpc":"2.0","method":"test/note","params":{"n":2}}`
	p2 := `{"jsonrpc":"2.0","method":"test/note","params":{"n":3}}`
	burst := fmt.Sprintf("Content-Length: %d\r\n\r\n%sContent-Length: %d\r\n\r\n%s",
		len(p1), p1, len(p2), p2)
	if _, err := h.toClient.Write([]byte(burst)); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d notifications, want 3", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTransportServerRequestGetsMethodNotFound(t *testing.T) {
	h := newTransportHarness(t)
	h.tr.Start(context.Background())

	h.sendFrame(t, `{"jsonrpc":"2.0","id":7,"method":"workspace/configuration","params":{}}`)

	body := h.readFrame(t)
	var reply struct {
		ID    int64     `json:"id"`
		Error *RPCError `json:"error"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if reply.ID != 7 {
		t.Errorf("reply id = %d, want 7", reply.ID)
	}
	if reply.Error == nil || reply.Error.Code != CodeMethodNotFound {
		t.Errorf("reply error = %+v, want MethodNotFound", reply.Error)
	}
}

func TestTransportParseErrorContinues(t *testing.T) {
	h := newTransportHarness(t)
	h.tr.Start(context.Background())

	parseErrs := make(chan error, 1)
	h.tr.OnParseError(func(err error) {
		select {
		case parseErrs <- err:
		default:
		}
	})

	received := make(chan struct{})
	h.tr.OnNotification("test/after", func(method string, params json.RawMessage) {
		close(received)
	})

	h.sendFrame(t, `{this is not json`)
	h.sendFrame(t, `{"jsonrpc":"2.0","method":"test/after"}`)

	select {
	case <-parseErrs:
	case <-time.After(2 * time.Second):
		t.Fatal("parse error not reported")
	}
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("transport stopped reading after a parse error")
	}
}

func TestTransportRequestIDsUnique(t *testing.T) {
	h := newTransportHarness(t)
	h.tr.Start(context.Background())

	const calls = 5
	ids := make(chan int64, calls)

	go func() {
		for i := 0; i < calls; i++ {
			body, err := h.readFrameErr()
			if err != nil {
				return
			}
			var req struct {
				ID int64 `json:"id"`
			}
			json.Unmarshal(body, &req)
			ids <- req.ID
			h.sendFrameErr(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":null}`, req.ID))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < calls; i++ {
		if err := h.tr.Call(ctx, "test/seq", nil, nil); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	seen := make(map[int64]bool)
	for i := 0; i < calls; i++ {
		id := <-ids
		if seen[id] {
			t.Fatalf("duplicate request id %d", id)
		}
		seen[id] = true
	}
}

func TestTransportCallAfterClose(t *testing.T) {
	h := newTransportHarness(t)

	if err := h.tr.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if err := h.tr.Close(); err != nil {
		t.Fatalf("second Close error = %v", err)
	}

	if err := h.tr.Call(context.Background(), "test/ask", nil, nil); !errors.Is(err, ErrShutdown) {
		t.Errorf("Call after close = %v, want ErrShutdown", err)
	}
	if err := h.tr.Notify("test/note", nil); !errors.Is(err, ErrShutdown) {
		t.Errorf("Notify after close = %v, want ErrShutdown", err)
	}
}

func TestTransportCloseReleasesPendingCall(t *testing.T) {
	h := newTransportHarness(t)
	h.tr.Start(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.tr.Call(context.Background(), "test/hang", nil, nil)
	}()

	// Consume the outbound request, then close without answering.
	h.readFrame(t)
	h.tr.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrShutdown) {
			t.Errorf("Call = %v, want ErrShutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not released by Close")
	}
}
