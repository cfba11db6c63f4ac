package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlock-core/internal/message"
)

const (
	defaultQueueSize = 256

	// beepDuration is the confirmation tone on authorized access.
	beepDuration = 100 * time.Millisecond
)

var topics = mqtt.Topics{}

// Deps holds the collaborators of a Coordinator.
//
// Publisher is required. Every other field is optional and replaced by a
// no-op when nil.
type Deps struct {
	Config     config.LockConfig
	Publisher  Publisher
	Actuator   Actuator
	Emitter    LogEmitter
	Attendance AttendanceMarker
	Audit      Auditor
	Metrics    Metrics
	Telemetry  Telemetry
	Logger     Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

type eventKind int

const (
	kindAccess eventKind = iota
	kindControl
	kindSystem
	kindRelock
	kindBarrier
)

// event is one unit of work for the loop.
type event struct {
	kind    eventKind
	access  message.Access
	control message.Control
	system  message.SystemLog
	gen     uint64        // kindRelock: timer generation
	done    chan struct{} // kindBarrier
}

// Coordinator owns the lock state. See the package documentation.
type Coordinator struct {
	cfg        config.LockConfig
	pub        Publisher
	actuator   Actuator
	emitter    LogEmitter
	attendance AttendanceMarker
	audit      Auditor
	metrics    Metrics
	telemetry  Telemetry
	logger     Logger
	now        func() time.Time

	queue   chan event
	stopped chan struct{}

	runMu   sync.Mutex
	running bool

	// Owned by the Run goroutine.
	state       State
	relockTimer *time.Timer
	relockGen   uint64

	snapMu sync.RWMutex
	snap   State
}

// New creates a Coordinator in the initial state: locked, no emergency,
// no relock pending.
func New(deps Deps) (*Coordinator, error) {
	if deps.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	c := &Coordinator{
		cfg:        deps.Config,
		pub:        deps.Publisher,
		actuator:   deps.Actuator,
		emitter:    deps.Emitter,
		attendance: deps.Attendance,
		audit:      deps.Audit,
		metrics:    deps.Metrics,
		telemetry:  deps.Telemetry,
		logger:     deps.Logger,
		now:        deps.Now,
		stopped:    make(chan struct{}),
	}
	if c.actuator == nil {
		c.actuator = noopActuator{}
	}
	if c.emitter == nil {
		c.emitter = noopEmitter{}
	}
	if c.metrics == nil {
		c.metrics = noopMetrics{}
	}
	if c.telemetry == nil {
		c.telemetry = noopTelemetry{}
	}
	if c.logger == nil {
		c.logger = noopLogger{}
	}
	if c.now == nil {
		c.now = time.Now
	}

	size := deps.Config.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	c.queue = make(chan event, size)

	c.state = State{Locked: true, UpdatedAt: c.now()}
	c.snap = c.state
	return c, nil
}

// Subscribe registers the coordinator's handlers on the access, control
// and system topics at QoS 2.
func (c *Coordinator) Subscribe(sub Subscriber) error {
	var errs []error
	for _, topic := range []string{topics.Access(), topics.Control(), topics.System()} {
		if err := sub.Subscribe(topic, mqtt.QoSExactlyOnce, c.HandleMessage); err != nil {
			errs = append(errs, fmt.Errorf("subscribing to %s: %w", topic, err))
		}
	}
	return errors.Join(errs...)
}

// Run applies queued events until ctx is cancelled. It may only be called
// once. A pending relock timer is stopped on return.
func (c *Coordinator) Run(ctx context.Context) error {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.runMu.Unlock()

	defer close(c.stopped)
	defer c.stopRelockTimer()

	var tick <-chan time.Time
	if c.cfg.StateInterval > 0 {
		ticker := time.NewTicker(c.cfg.StateInterval)
		defer ticker.Stop()
		tick = ticker.C
		c.announce()
	}

	c.logger.Info("coordinator started",
		"relock_delay", c.cfg.RelockDelay,
		"alarm_duration", c.cfg.AlarmDuration,
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopped")
			return nil
		case ev := <-c.queue:
			c.apply(ctx, ev)
		case <-tick:
			c.announce()
		}
	}
}

// Snapshot returns the state after the most recently applied event.
func (c *Coordinator) Snapshot() State {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// HandleMessage is the bus handler for every subscribed topic.
//
// It decodes the payload on the caller's goroutine and enqueues the result.
// Malformed payloads are logged once and dropped; they never reach the
// state machine. It always returns nil so the bus client does not log the
// same failure again.
func (c *Coordinator) HandleMessage(topic string, payload []byte) error {
	var ev event
	switch topic {
	case topics.Access():
		a, err := message.DecodeAccess(payload)
		if c.rejected(topic, err) {
			return nil
		}
		ev = event{kind: kindAccess, access: a}

	case topics.Control():
		ctl, err := message.DecodeControl(payload)
		if c.rejected(topic, err) {
			return nil
		}
		if ctl.Command != message.CommandAutoRelock && ctl.Source != message.SourceAdmin {
			c.logger.Debug("control command from non-admin source ignored",
				"command", ctl.Command, "source", ctl.Source)
			return nil
		}
		ev = event{kind: kindControl, control: ctl}

	case topics.System():
		s, err := message.DecodeSystemLog(payload)
		if c.rejected(topic, err) {
			return nil
		}
		ev = event{kind: kindSystem, system: s}

	default:
		c.logger.Debug("message on unhandled topic", "topic", topic)
		return nil
	}

	if err := c.enqueue(ev); err != nil {
		c.logger.Debug("message dropped", "topic", topic, "error", err)
	}
	return nil
}

func (c *Coordinator) rejected(topic string, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, message.ErrIgnored):
		c.logger.Debug("message ignored", "topic", topic)
	default:
		c.logger.Error("malformed message dropped", "topic", topic, "error", err)
		c.metrics.ObserveMalformed(topic)
	}
	return true
}

// enqueue blocks until the loop accepts ev or has stopped.
func (c *Coordinator) enqueue(ev event) error {
	select {
	case c.queue <- ev:
		return nil
	case <-c.stopped:
		return ErrStopped
	}
}

// barrier returns once every event queued before it has been applied.
func (c *Coordinator) barrier() error {
	done := make(chan struct{})
	if err := c.enqueue(event{kind: kindBarrier, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.stopped:
		return ErrStopped
	}
}

func (c *Coordinator) apply(ctx context.Context, ev event) {
	switch ev.kind {
	case kindAccess:
		c.onAccess(ctx, ev.access)
	case kindControl:
		c.onControl(ctx, ev.control)
	case kindSystem:
		c.onSystem(ev.system)
	case kindRelock:
		c.onRelockFired(ctx, ev.gen)
	case kindBarrier:
		close(ev.done)
	}
}
