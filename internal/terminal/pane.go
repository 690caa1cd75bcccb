package terminal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// pollInterval is how often the pump drains the pty output buffer.
const pollInterval = 10 * time.Millisecond

// PaneOptions configures a terminal pane.
type PaneOptions struct {
	// Name is a human-readable pane title.
	Name string

	// Shell options used when the pane spawns its own pty.
	Shell   string
	Args    []string
	Env     []string
	WorkDir string

	// Size is the initial window size (defaults to 80x24).
	Size Size

	// OnOutput is called from the pump with each drained output chunk.
	OnOutput func(data []byte)

	// OnExit is called once when the pty dies, with its exit code.
	OnExit func(code int)
}

// Pane owns one Pty exclusively and pumps its output to a callback. The
// pane is the only writer and the only reader of its pty.
type Pane struct {
	id  string
	pty Pty

	mu   sync.RWMutex
	name string

	onOutput func(data []byte)
	onExit   func(code int)
	onClose  func()

	done   chan struct{}
	closed atomic.Bool
}

// NewPane spawns a shell pty and starts pumping its output.
func NewPane(opts PaneOptions) (*Pane, error) {
	pty, err := StartShell(ShellOptions{
		Shell:   opts.Shell,
		Args:    opts.Args,
		Env:     opts.Env,
		WorkDir: opts.WorkDir,
		Size:    opts.Size,
	})
	if err != nil {
		return nil, err
	}
	return NewPaneWithPty(pty, opts), nil
}

// NewPaneWithPty wraps an existing pty. Tests inject a MockPty here.
func NewPaneWithPty(pty Pty, opts PaneOptions) *Pane {
	if opts.Name == "" {
		opts.Name = "terminal"
	}
	p := &Pane{
		id:       uuid.New().String(),
		pty:      pty,
		name:     opts.Name,
		onOutput: opts.OnOutput,
		onExit:   opts.OnExit,
		done:     make(chan struct{}),
	}
	go p.pump()
	return p
}

// ID returns the pane's unique identifier.
func (p *Pane) ID() string {
	return p.id
}

// Name returns the pane's display name.
func (p *Pane) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

// SetName updates the pane's display name.
func (p *Pane) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

// Write sends input bytes to the pty.
func (p *Pane) Write(data []byte) error {
	return p.pty.Write(data)
}

// WriteString sends a string to the pty.
func (p *Pane) WriteString(s string) error {
	return p.pty.Write([]byte(s))
}

// Resize changes the pane's window size.
func (p *Pane) Resize(size Size) error {
	return p.pty.Resize(size)
}

// Size returns the current window size.
func (p *Pane) Size() Size {
	return p.pty.Size()
}

// IsRunning reports whether the underlying pty is alive.
func (p *Pane) IsRunning() bool {
	return p.pty.IsAlive()
}

// ExitCode returns the child's exit status once it has exited.
func (p *Pane) ExitCode() (int, bool) {
	return p.pty.ExitCode()
}

// Done is closed when the pump has drained the final output.
func (p *Pane) Done() <-chan struct{} {
	return p.done
}

// Close terminates the pty and waits for the pump to finish. Idempotent.
func (p *Pane) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.pty.Close()
	<-p.done
	if p.onClose != nil {
		p.onClose()
	}
	return nil
}

// pump polls the pty, forwarding drained output. When the pty dies it
// drains one final time, reports the exit code, and stops.
func (p *Pane) pump() {
	defer close(p.done)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for range ticker.C {
		alive := p.pty.IsAlive()

		if data := p.pty.Read(); len(data) > 0 && p.onOutput != nil {
			p.onOutput(data)
		}

		if !alive {
			if code, ok := p.pty.ExitCode(); ok && p.onExit != nil {
				p.onExit(code)
			}
			return
		}
	}
}
