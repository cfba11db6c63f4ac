package influxdb

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
)

// fakePoints records points instead of batching them to a server.
type fakePoints struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakePoints) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakePoints) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func (f *fakePoints) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.points))
	for _, p := range f.points {
		out = append(out, write.PointToLineProtocol(p, time.Nanosecond))
	}
	return out
}

func newTestClient() (*Client, *fakePoints) {
	fp := &fakePoints{}
	c := &Client{
		points: fp,
		ping:   func(context.Context) error { return nil },
		site:   "lock-001",
		open:   true,
	}
	return c, fp
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{Enabled: false}, "lock-001")
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:59999",
		Org:     "smartlock",
		Bucket:  "lock",
	}, "lock-001")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWriteLockEvent(t *testing.T) {
	c, fp := newTestClient()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	c.WriteLockEvent("unlock", "admin", false, false, at)

	lines := fp.lines()
	if len(lines) != 1 {
		t.Fatalf("wrote %d points, want 1", len(lines))
	}
	line := lines[0]
	for _, want := range []string{"lock_events,", "event=unlock", "site=lock-001", "source=admin", "locked=false", "emergency=false"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestWriteAccessDecision(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		granted bool
		want    []string
	}{
		{"granted", "Alice", true, []string{"access_decisions,", "status=granted", `user="Alice"`}},
		{"denied", "Unknown", false, []string{"status=denied", `user="Unknown"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fp := newTestClient()
			c.WriteAccessDecision(tt.user, tt.granted, time.Now())

			lines := fp.lines()
			if len(lines) != 1 {
				t.Fatalf("wrote %d points, want 1", len(lines))
			}
			for _, want := range tt.want {
				if !strings.Contains(lines[0], want) {
					t.Errorf("line %q missing %q", lines[0], want)
				}
			}
		})
	}
}

func TestWrite_SkippedWhenDisconnected(t *testing.T) {
	c, fp := newTestClient()
	c.open = false

	c.WriteLockEvent("lockdown", "admin", true, true, time.Now())
	c.WriteAccessDecision("Alice", true, time.Now())

	if n := len(fp.lines()); n != 0 {
		t.Errorf("wrote %d points while disconnected", n)
	}
}

func TestFlushAndClose(t *testing.T) {
	c, fp := newTestClient()
	released := 0
	c.shutdown = func() { released++ }

	c.Flush()
	if fp.flushes != 1 {
		t.Errorf("flushes = %d, want 1", fp.flushes)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if fp.flushes != 2 || released != 1 {
		t.Errorf("Close() flushes = %d released = %d, want 2 and 1", fp.flushes, released)
	}
	if err := c.Close(); err != nil || released != 1 {
		t.Errorf("second Close() = %v, released = %d; want idempotent", err, released)
	}

	c.Flush()
	c.WriteLockEvent("unlock", "admin", false, false, time.Now())
	if fp.flushes != 2 || len(fp.lines()) != 0 {
		t.Errorf("client still writing after Close: flushes = %d points = %d", fp.flushes, len(fp.lines()))
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck(t *testing.T) {
	c, _ := newTestClient()
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v, want nil", err)
	}

	down := errors.New("connection refused")
	c.ping = func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("ping context has no deadline")
		}
		return down
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, down) {
		t.Errorf("HealthCheck() error = %v, want wrapped ping failure", err)
	}
}

func TestSetOnError(t *testing.T) {
	c, _ := newTestClient()

	errs := make(chan error, 2)
	done := make(chan struct{})
	c.SetOnError(func(err error) { errs <- err })

	ch := make(chan error, 1)
	go func() {
		c.watchWriteErrors(ch)
		close(done)
	}()
	ch <- errors.New("bucket not found")
	ch <- errors.New("bucket not found")
	close(ch)
	<-done

	if n := c.WriteFailures(); n != 2 {
		t.Errorf("WriteFailures() = %d, want 2", n)
	}

	select {
	case err := <-errs:
		if err.Error() != "bucket not found" {
			t.Errorf("callback got %v", err)
		}
	default:
		t.Error("error callback not invoked")
	}
}
