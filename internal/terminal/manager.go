package terminal

import (
	"sync"
	"sync/atomic"
	"time"
)

// Manager tracks the terminal panes of one editor instance.
type Manager struct {
	mu    sync.RWMutex
	panes map[string]*Pane

	defaultShell string
	defaultSize  Size

	// spawn creates a pane; tests substitute a mock-backed factory.
	spawn func(PaneOptions) (*Pane, error)

	closed atomic.Bool
}

// ManagerConfig configures a pane manager.
type ManagerConfig struct {
	// DefaultShell is used when a pane names no shell.
	DefaultShell string

	// DefaultSize is used when a pane names no size.
	DefaultSize Size
}

// NewManager creates a pane manager.
func NewManager(cfg ManagerConfig) *Manager {
	if !cfg.DefaultSize.Valid() {
		cfg.DefaultSize = Size{Cols: 80, Rows: 24}
	}
	return &Manager{
		panes:        make(map[string]*Pane),
		defaultShell: cfg.DefaultShell,
		defaultSize:  cfg.DefaultSize,
		spawn:        NewPane,
	}
}

// Create spawns and tracks a new pane.
func (m *Manager) Create(opts PaneOptions) (*Pane, error) {
	if m.closed.Load() {
		return nil, ErrManagerClosed
	}
	if opts.Shell == "" {
		opts.Shell = m.defaultShell
	}
	if !opts.Size.Valid() {
		opts.Size = m.defaultSize
	}

	pane, err := m.spawn(opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.panes[pane.id] = pane
	m.mu.Unlock()

	pane.onClose = func() {
		m.mu.Lock()
		delete(m.panes, pane.id)
		m.mu.Unlock()
	}
	return pane, nil
}

// Get returns a pane by id.
func (m *Manager) Get(id string) (*Pane, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pane, ok := m.panes[id]
	return pane, ok
}

// List returns all tracked panes.
func (m *Manager) List() []*Pane {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Pane, 0, len(m.panes))
	for _, pane := range m.panes {
		out = append(out, pane)
	}
	return out
}

// Count returns the number of tracked panes.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.panes)
}

// Close closes one pane by id.
func (m *Manager) Close(id string) error {
	pane, ok := m.Get(id)
	if !ok {
		return ErrPaneNotFound
	}
	return pane.Close()
}

// Shutdown closes every pane, waiting up to timeout for their pumps.
func (m *Manager) Shutdown(timeout time.Duration) {
	if m.closed.Swap(true) {
		return
	}
	panes := m.List()

	done := make(chan struct{})
	go func() {
		for _, pane := range panes {
			pane.Close()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
