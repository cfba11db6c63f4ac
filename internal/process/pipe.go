package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status represents the current state of a piped process.
type Status string

const (
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
	StatusStopped Status = "stopped"
)

// outputBufferSize is the buffer size for capturing subprocess stderr.
const outputBufferSize = 4096

// defaultGracefulTimeout bounds how long Stop waits after SIGTERM.
const defaultGracefulTimeout = 2 * time.Second

// ErrNotRunning is returned by Read and Write after the process has exited.
var ErrNotRunning = errors.New("process: not running")

// Config holds configuration for a piped subprocess.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the executable, resolved through PATH when not absolute.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	// Default: 2s
	GracefulTimeout time.Duration
}

// Logger defines the logging interface for piped processes.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Pipe is a running subprocess. Read consumes its stdout and Write feeds
// its stdin.
//
// Thread Safety: One reader and one writer may use a Pipe concurrently
// with Stop.
type Pipe struct {
	config Config
	logger Logger
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	done   chan struct{}

	mu          sync.Mutex
	status      Status
	exitErr     error
	releaseOnce sync.Once
}

// Start launches cfg.Binary and returns once the process is running.
func Start(cfg Config, logger Logger) (*Pipe, error) {
	if cfg.Binary == "" {
		return nil, fmt.Errorf("process %s: binary is required", cfg.Name)
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = defaultGracefulTimeout
	}
	if logger == nil {
		logger = noopLogger{}
	}

	cmd := exec.Command(cfg.Binary, cfg.Args...) //nolint:gosec // Binary comes from operator config

	// Own process group so Stop reaches children of shell wrappers too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if cfg.Env != nil {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", cfg.Name, err)
	}

	p := &Pipe{
		config: cfg,
		logger: logger,
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		done:   make(chan struct{}),
		status: StatusRunning,
	}

	logger.Debug("process started", "name", cfg.Name, "pid", cmd.Process.Pid)

	go p.captureOutput(stderr)
	go p.wait()

	return p, nil
}

// captureOutput logs everything the process writes to stderr and closes
// it at EOF.
func (p *Pipe) captureOutput(r io.ReadCloser) {
	defer r.Close() //nolint:errcheck // read side only
	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.logger.Debug("process output",
				"name", p.config.Name,
				"output", string(buf[:n]),
			)
		}
		if err != nil {
			return
		}
	}
}

// wait reaps the process. It uses Process.Wait rather than Cmd.Wait so
// the pipes stay open until the reader has drained them; release closes
// them.
func (p *Pipe) wait() {
	state, err := p.cmd.Process.Wait()
	if err == nil && !state.Success() {
		err = fmt.Errorf("%s: %s", p.config.Name, state)
	}

	p.mu.Lock()
	if p.status == StatusRunning {
		p.status = StatusExited
		p.exitErr = err
	}
	status := p.status
	p.mu.Unlock()

	if status == StatusExited {
		p.logger.Warn("process exited", "name", p.config.Name, "error", err)
	}
	close(p.done)
}

// Read reads from the process's stdout.
func (p *Pipe) Read(b []byte) (int, error) {
	n, err := p.stdout.Read(b)
	if err != nil && err != io.EOF && p.finished() {
		return n, fmt.Errorf("%w: %w", ErrNotRunning, err)
	}
	return n, err
}

// Write writes to the process's stdin.
func (p *Pipe) Write(b []byte) (int, error) {
	n, err := p.stdin.Write(b)
	if err != nil && p.finished() {
		return n, fmt.Errorf("%w: %w", ErrNotRunning, err)
	}
	return n, err
}

func (p *Pipe) finished() bool {
	select {
	case <-p.done:
		return true
	default:
		return p.Status() != StatusRunning
	}
}

// Stop closes stdin, sends SIGTERM to the process group and waits up to
// GracefulTimeout before SIGKILL. After exit it only releases the pipes.
func (p *Pipe) Stop() error {
	defer p.release()

	p.mu.Lock()
	if p.status != StatusRunning {
		p.mu.Unlock()
		return nil
	}
	p.status = StatusStopped
	p.mu.Unlock()

	pid := p.cmd.Process.Pid
	p.logger.Debug("stopping process", "name", p.config.Name, "pid", pid)

	p.stdin.Close() //nolint:errcheck // Process may already be gone

	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		p.logger.Warn("failed to send SIGTERM to process group", "name", p.config.Name, "error", err)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(p.config.GracefulTimeout):
		p.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", p.config.Name,
			"timeout", p.config.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("killing process group %s: %w", p.config.Name, err)
	}
	<-p.done
	return nil
}

func (p *Pipe) release() {
	p.releaseOnce.Do(func() {
		p.stdin.Close()  //nolint:errcheck // Already closed by Stop
		p.stdout.Close() //nolint:errcheck // Unblocks a pending Read
	})
}

// Done is closed once the process has exited.
func (p *Pipe) Done() <-chan struct{} {
	return p.done
}

// Status returns the current status.
func (p *Pipe) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Err returns the exit error of a process that exited on its own.
func (p *Pipe) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

// PID returns the process ID.
func (p *Pipe) PID() int {
	return p.cmd.Process.Pid
}
