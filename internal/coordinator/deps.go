package coordinator

import (
	"context"
	"time"

	"github.com/nerrad567/smartlock-core/internal/audit"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
)

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber registers bus handlers.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Actuator is the door hardware.
type Actuator interface {
	SetLocked()
	SetUnlocked()
	SoundAlarm(d time.Duration)
}

// Beeper is optionally implemented by the Actuator.
type Beeper interface {
	Beep(d time.Duration)
}

// LogEmitter writes rate-limited lines to the access log.
type LogEmitter interface {
	Log(category, message string, now time.Time) (bool, error)
	LogSystem(message string, now time.Time) (bool, error)
}

// AttendanceMarker records that a recognised person arrived.
type AttendanceMarker interface {
	// Mark returns true if a new record was written.
	Mark(ctx context.Context, name string, at time.Time) (bool, error)
}

// Auditor persists applied transitions.
type Auditor interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// Metrics observes coordinator activity.
type Metrics interface {
	ObserveTransition(kind string)
	ObserveMalformed(topic string)
	ObserveRelock()
	ObserveAttendance()
	SetLockState(locked, emergency bool)
}

// Telemetry writes time-series points for transitions.
type Telemetry interface {
	WriteLockEvent(event, source string, locked, emergency bool, at time.Time)
	WriteAccessDecision(user string, granted bool, at time.Time)
}

// Logger defines the logging interface used by the Coordinator.
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

type noopActuator struct{}

func (noopActuator) SetLocked()               {}
func (noopActuator) SetUnlocked()             {}
func (noopActuator) SoundAlarm(time.Duration) {}

type noopMetrics struct{}

func (noopMetrics) ObserveTransition(string) {}
func (noopMetrics) ObserveMalformed(string)  {}
func (noopMetrics) ObserveRelock()           {}
func (noopMetrics) ObserveAttendance()       {}
func (noopMetrics) SetLockState(bool, bool)  {}

type noopTelemetry struct{}

func (noopTelemetry) WriteLockEvent(string, string, bool, bool, time.Time) {}
func (noopTelemetry) WriteAccessDecision(string, bool, time.Time)          {}

type noopEmitter struct{}

func (noopEmitter) Log(string, string, time.Time) (bool, error) { return true, nil }
func (noopEmitter) LogSystem(string, time.Time) (bool, error)   { return true, nil }
