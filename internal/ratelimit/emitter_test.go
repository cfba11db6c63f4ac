package ratelimit

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
)

func newTestEmitter(window time.Duration) (*Emitter, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewEmitter(NewLimiter(window), &buf), &buf
}

func lines(buf *bytes.Buffer) []string {
	s := strings.TrimRight(buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func TestEmitter_LineFormat(t *testing.T) {
	e, buf := newTestEmitter(time.Minute)

	ok, err := e.Log(CategoryAuthorizedUser, "Alice unlocked door at 2026-03-02 09:00:00", t0)
	if err != nil || !ok {
		t.Fatalf("Log() = %v, %v", ok, err)
	}

	want := "2026-03-02 09:00:00 - Alice unlocked door at 2026-03-02 09:00:00\n"
	if buf.String() != want {
		t.Errorf("line = %q, want %q", buf.String(), want)
	}
}

func TestEmitter_Suppression(t *testing.T) {
	e, buf := newTestEmitter(time.Minute)

	var suppressed []string
	e.SetOnSuppressed(func(c string) { suppressed = append(suppressed, c) })

	e.Log(CategoryUnknownUser, "first", t0)                      //nolint:errcheck
	e.Log(CategoryUnknownUser, "second", t0.Add(10*time.Second)) //nolint:errcheck
	e.Log(CategoryUnknownUser, "third", t0.Add(time.Minute))     //nolint:errcheck

	got := lines(buf)
	if len(got) != 2 {
		t.Fatalf("wrote %d lines, want 2: %v", len(got), got)
	}
	if !strings.HasSuffix(got[1], "third") {
		t.Errorf("second line = %q, want third message", got[1])
	}
	if len(suppressed) != 1 || suppressed[0] != CategoryUnknownUser {
		t.Errorf("suppressed = %v", suppressed)
	}
}

func TestEmitter_UserMessagesBypass(t *testing.T) {
	e, buf := newTestEmitter(time.Minute)

	e.LogSystem("User: Bob registered", t0)                         //nolint:errcheck
	e.LogSystem("User: Carol registered", t0.Add(time.Millisecond)) //nolint:errcheck

	if n := len(lines(buf)); n != 2 {
		t.Fatalf("wrote %d lines, want 2", n)
	}

	// Bypassed lines do not consume the system_log window.
	ok, _ := e.LogSystem("camera restarted", t0.Add(2*time.Millisecond))
	if !ok {
		t.Error("first non-User system message should be logged")
	}
	ok, _ = e.LogSystem("camera restarted again", t0.Add(3*time.Millisecond))
	if ok {
		t.Error("second system message inside window should be suppressed")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEmitter_WriteError(t *testing.T) {
	e := NewEmitter(NewLimiter(time.Minute), failingWriter{})
	ok, err := e.Log(CategoryAdminAllow, "x", t0)
	if !ok || err == nil {
		t.Errorf("Log() = %v, %v; want true and an error", ok, err)
	}
}

func TestNewFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	w := NewFileWriter(config.FileLoggingConfig{Path: path, MaxSize: 1, MaxBackups: 2})
	t.Cleanup(func() { w.Close() })

	e := NewEmitter(NewLimiter(time.Minute), w)
	if _, err := e.Log(CategoryAdminDeny, "Unknown user denied by admin", t0); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), " - Unknown user denied by admin") {
		t.Errorf("log file = %q", data)
	}
}
