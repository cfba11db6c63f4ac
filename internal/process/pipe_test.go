package process

import (
	"errors"
	"io"
	"testing"
	"time"
)

func TestStart_RequiresBinary(t *testing.T) {
	if _, err := Start(Config{Name: "empty"}, nil); err == nil {
		t.Error("Start() without binary should fail")
	}
}

func TestStart_MissingBinary(t *testing.T) {
	if _, err := Start(Config{Name: "missing", Binary: "/nonexistent/bin/recorder"}, nil); err == nil {
		t.Error("Start() with a missing binary should fail")
	}
}

func TestPipe_RoundTrip(t *testing.T) {
	p, err := Start(Config{Name: "cat", Binary: "cat"}, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop() //nolint:errcheck // test cleanup

	if p.Status() != StatusRunning || p.PID() == 0 {
		t.Fatalf("Status() = %q, PID() = %d", p.Status(), p.PID())
	}

	frame := []byte("0123456789abcdef")
	if _, err := p.Write(frame); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got := make([]byte, len(frame))
	if _, err := io.ReadFull(p, got); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if string(got) != string(frame) {
		t.Errorf("read %q, want %q", got, frame)
	}
}

func TestPipe_StopIsGraceful(t *testing.T) {
	p, err := Start(Config{Name: "sleep", Binary: "sleep", Args: []string{"30"}}, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	start := time.Now()
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Stop() took %v, SIGTERM should end sleep promptly", elapsed)
	}
	if p.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", p.Status(), StatusStopped)
	}
	if p.Err() != nil {
		t.Errorf("Err() = %v, want nil after a requested stop", p.Err())
	}
	if err := p.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestPipe_StopEscalatesToKill(t *testing.T) {
	p, err := Start(Config{
		Name:            "stubborn",
		Binary:          "sh",
		Args:            []string{"-c", `trap "" TERM; while :; do sleep 0.05; done`},
		GracefulTimeout: 200 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Give the shell time to install the trap.
	time.Sleep(100 * time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- p.Stop() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return after SIGKILL")
	}
}

func TestPipe_ExitedOnItsOwn(t *testing.T) {
	p, err := Start(Config{Name: "short", Binary: "sh", Args: []string{"-c", "printf ab; exit 3"}}, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	got, readErr := io.ReadAll(p)
	if string(got) != "ab" {
		t.Errorf("read %q, want %q", got, "ab")
	}
	// ReadAll swallows EOF; a read that races with Wait may report ErrNotRunning.
	if readErr != nil && !errors.Is(readErr, ErrNotRunning) {
		t.Errorf("ReadAll() error = %v", readErr)
	}

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	if p.Status() != StatusExited {
		t.Errorf("Status() = %q, want %q", p.Status(), StatusExited)
	}
	if p.Err() == nil {
		t.Error("Err() = nil, want the exit status")
	}

	if _, err := p.Write([]byte("x")); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Write() after exit error = %v, want ErrNotRunning", err)
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() after exit error = %v", err)
	}
}
