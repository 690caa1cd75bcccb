package terminal

import (
	"fmt"
	"sync"
)

// MockPty is a deterministic in-memory Pty. Writes are recorded, reads
// drain data queued with SetReadData, and liveness is controlled by
// SimulateExit and Close. Safe for use from a single test goroutine and
// the pane pump.
type MockPty struct {
	mu sync.Mutex

	writes   [][]byte
	pending  []byte
	size     Size
	alive    bool
	exitCode int
	exited   bool
}

// NewMockPty creates a live mock with the given size.
func NewMockPty(size Size) *MockPty {
	if !size.Valid() {
		size = Size{Cols: 80, Rows: 24}
	}
	return &MockPty{size: size, alive: true}
}

// Write records the input bytes.
func (m *MockPty) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.alive {
		return fmt.Errorf("write: %w", ErrPtyClosed)
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	m.writes = append(m.writes, buf)
	return nil
}

// Read drains queued output. Data set before Close is still drained
// afterwards.
func (m *MockPty) Read() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

// Resize records the new size.
func (m *MockPty) Resize(size Size) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !size.Valid() {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, size.Cols, size.Rows)
	}
	if !m.alive {
		return fmt.Errorf("resize: %w", ErrPtyClosed)
	}
	m.size = size
	return nil
}

// Size returns the last applied size.
func (m *MockPty) Size() Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// IsAlive reports liveness.
func (m *MockPty) IsAlive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive
}

// ExitCode returns the exit status once dead.
func (m *MockPty) ExitCode() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exited {
		return 0, false
	}
	return m.exitCode, true
}

// Close marks the mock dead with exit code 0 unless an exit was already
// simulated. Idempotent.
func (m *MockPty) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive = false
	if !m.exited {
		m.exitCode = 0
		m.exited = true
	}
	return nil
}

// SetReadData queues bytes for the next Read.
func (m *MockPty) SetReadData(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, data...)
}

// SimulateExit marks the child as exited with the given code.
func (m *MockPty) SimulateExit(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive = false
	m.exitCode = code
	m.exited = true
}

// Writes returns copies of all recorded writes in order.
func (m *MockPty) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Input returns every recorded write concatenated.
func (m *MockPty) Input() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.writes {
		out = append(out, w...)
	}
	return out
}

var _ Pty = (*MockPty)(nil)
