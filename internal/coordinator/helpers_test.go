package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/smartlock-core/internal/audit"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic, payload, qos, retained})
	return p.err
}

func (p *fakePublisher) on(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, m := range p.msgs {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func decode[T any](t *testing.T, m published) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(m.payload, &v); err != nil {
		t.Fatalf("payload on %s is not valid JSON: %v", m.topic, err)
	}
	return v
}

type fakeActuator struct {
	mu       sync.Mutex
	locked   int
	unlocked int
	alarms   []time.Duration
	beeps    int
}

func (a *fakeActuator) SetLocked() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locked++
}

func (a *fakeActuator) SetUnlocked() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.unlocked++
}

func (a *fakeActuator) SoundAlarm(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alarms = append(a.alarms, d)
}

func (a *fakeActuator) Beep(time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.beeps++
}

func (a *fakeActuator) counts() (locked, unlocked, alarms int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.locked, a.unlocked, len(a.alarms)
}

type fakeEmitter struct {
	mu     sync.Mutex
	lines  []string
	system []string
}

func (e *fakeEmitter) Log(category, msg string, _ time.Time) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = append(e.lines, category+": "+msg)
	return true, nil
}

func (e *fakeEmitter) LogSystem(msg string, _ time.Time) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.system = append(e.system, msg)
	return true, nil
}

type fakeMarker struct {
	mu    sync.Mutex
	names []string
}

func (m *fakeMarker) Mark(_ context.Context, name string, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	return true, nil
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *fakeAuditor) Create(_ context.Context, e *audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return nil
}

func (a *fakeAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type fakeMetrics struct {
	mu          sync.Mutex
	transitions map[string]int
	malformed   map[string]int
	relocks     int
	attendance  int
	locked      bool
	emergency   bool
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{transitions: map[string]int{}, malformed: map[string]int{}}
}

func (m *fakeMetrics) ObserveTransition(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[kind]++
}

func (m *fakeMetrics) ObserveMalformed(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed[topic]++
}

func (m *fakeMetrics) ObserveRelock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relocks++
}

func (m *fakeMetrics) ObserveAttendance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance++
}

func (m *fakeMetrics) SetLockState(locked, emergency bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked, m.emergency = locked, emergency
}

func (m *fakeMetrics) relockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.relocks
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprint(append([]any{msg}, args...)...))
}

func (l *recordingLogger) errorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}

// harness wires a Coordinator to fakes and runs it until the test ends.
type harness struct {
	c       *Coordinator
	pub     *fakePublisher
	act     *fakeActuator
	emitter *fakeEmitter
	marker  *fakeMarker
	auditor *fakeAuditor
	metrics *fakeMetrics
	logger  *recordingLogger
}

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testLockConfig() config.LockConfig {
	return config.LockConfig{
		RelockDelay:     time.Hour,
		AlarmDuration:   10 * time.Second,
		RateLimitWindow: time.Minute,
	}
}

func newHarness(t *testing.T, cfg config.LockConfig) *harness {
	t.Helper()
	h := &harness{
		pub:     &fakePublisher{},
		act:     &fakeActuator{},
		emitter: &fakeEmitter{},
		marker:  &fakeMarker{},
		auditor: &fakeAuditor{},
		metrics: newFakeMetrics(),
		logger:  &recordingLogger{},
	}
	c, err := New(Deps{
		Config:     cfg,
		Publisher:  h.pub,
		Actuator:   h.act,
		Emitter:    h.emitter,
		Attendance: h.marker,
		Audit:      h.auditor,
		Metrics:    h.metrics,
		Logger:     h.logger,
		Now:        func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.c = c

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx) //nolint:errcheck // Run only fails when started twice
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

// send delivers payload as if it arrived on topic and waits until applied.
func (h *harness) send(t *testing.T, topic, payload string) {
	t.Helper()
	if err := h.c.HandleMessage(topic, []byte(payload)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if err := h.c.barrier(); err != nil {
		t.Fatalf("barrier() error = %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

const (
	aliceAccess   = `{"type":"access","authorized":true,"user":"Alice","timestamp":"2026-03-02T09:00:00Z"}`
	unknownAccess = `{"type":"access","authorized":false,"user":"Unknown","timestamp":"2026-03-02T09:00:00Z"}`
	adminUnlock   = `{"command":"unlock","source":"admin","timestamp":"2026-03-02T09:00:00Z"}`
	adminLockdown = `{"command":"lockdown","source":"admin","timestamp":"2026-03-02T09:00:00Z"}`
)
