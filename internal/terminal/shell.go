//go:build linux || darwin

package terminal

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
)

// ShellOptions configures a shell spawned on a pseudo-terminal.
type ShellOptions struct {
	// Shell is the executable (defaults to $SHELL, then /bin/sh).
	Shell string

	// Args are appended after the default login flag.
	Args []string

	// Env are additional environment variables.
	Env []string

	// WorkDir is the shell's working directory.
	WorkDir string

	// Size is the initial window size (defaults to 80x24).
	Size Size
}

// shellPty runs a shell on an OS pseudo-terminal. A background reader
// drains the master into an internal buffer so Read never blocks.
type shellPty struct {
	master *os.File
	cmd    *exec.Cmd

	mu     sync.Mutex
	outbuf []byte
	size   Size

	done      chan struct{}
	closed    atomic.Bool
	exitCode  atomic.Int32
	exited    atomic.Bool
	closeOnce sync.Once
}

// StartShell spawns a shell attached to a new pseudo-terminal.
func StartShell(opts ShellOptions) (Pty, error) {
	if opts.Shell == "" {
		opts.Shell = os.Getenv("SHELL")
		if opts.Shell == "" {
			opts.Shell = "/bin/sh"
		}
	}
	if !opts.Size.Valid() {
		opts.Size = Size{Cols: 80, Rows: 24}
	}
	if _, err := exec.LookPath(opts.Shell); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrShellNotFound, opts.Shell)
	}

	master, slave, err := openPTY()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPtyFailed, err)
	}
	if err := setWinSize(master, uint16(opts.Size.Cols), uint16(opts.Size.Rows)); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("%w: %v", ErrPtyFailed, err)
	}

	args := append([]string{"-l"}, opts.Args...)
	cmd := exec.Command(opts.Shell, args...)
	cmd.Dir = opts.WorkDir
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")

	// The slave side becomes the child's controlling terminal.
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	if err := cmd.Start(); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("%w: %v", ErrShellNotFound, err)
	}
	slave.Close()

	p := &shellPty{
		master: master,
		cmd:    cmd,
		size:   opts.Size,
		done:   make(chan struct{}),
	}
	p.exitCode.Store(-1)
	go p.readLoop()
	return p, nil
}

// readLoop drains the master into the output buffer until the child
// exits or the master is closed, then reaps the process.
func (p *shellPty) readLoop() {
	defer close(p.done)

	buf := make([]byte, 4096)
	for {
		n, err := p.master.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.outbuf = append(p.outbuf, buf[:n]...)
			p.mu.Unlock()
		}
		if err != nil {
			if err == io.EOF || p.closed.Load() {
				break
			}
			// Reads on a closed slave side report EIO on Linux.
			break
		}
	}

	state, err := p.cmd.Process.Wait()
	code := 0
	if err == nil && state != nil {
		code = state.ExitCode()
	}
	if code < 0 {
		code = 0
	}
	p.exitCode.Store(int32(code))
	p.exited.Store(true)
}

func (p *shellPty) Write(data []byte) error {
	if !p.IsAlive() {
		return fmt.Errorf("write: %w", ErrPtyClosed)
	}
	for len(data) > 0 {
		n, err := p.master.Write(data)
		if err != nil {
			return fmt.Errorf("write: %w: %v", ErrPtyClosed, err)
		}
		data = data[n:]
	}
	return nil
}

func (p *shellPty) Read() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.outbuf
	p.outbuf = nil
	return out
}

func (p *shellPty) Resize(size Size) error {
	if !size.Valid() {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, size.Cols, size.Rows)
	}
	if !p.IsAlive() {
		return fmt.Errorf("resize: %w", ErrPtyClosed)
	}
	if err := setWinSize(p.master, uint16(size.Cols), uint16(size.Rows)); err != nil {
		return fmt.Errorf("%w: %v", ErrResizeFailed, err)
	}
	p.mu.Lock()
	p.size = size
	p.mu.Unlock()
	return nil
}

func (p *shellPty) Size() Size {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.size
}

func (p *shellPty) IsAlive() bool {
	return !p.closed.Load() && !p.exited.Load()
}

func (p *shellPty) ExitCode() (int, bool) {
	if !p.exited.Load() {
		return 0, false
	}
	return int(p.exitCode.Load()), true
}

func (p *shellPty) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		if p.cmd.Process != nil {
			p.cmd.Process.Kill()
		}
		p.master.Close()
		<-p.done
		if !p.exited.Load() {
			p.exitCode.Store(0)
			p.exited.Store(true)
		}
	})
	return nil
}

var _ Pty = (*shellPty)(nil)
