package actuator

import "time"

// Actuator is the lock hardware capability.
type Actuator interface {
	// SetLocked drives the lock (and its LED) to locked.
	SetLocked()

	// SetUnlocked drives the lock (and its LED) to unlocked.
	SetUnlocked()

	// SoundAlarm starts the alarm pattern for d. It returns immediately.
	SoundAlarm(d time.Duration)
}

// Beeper is implemented by actuators that can give a short confirmation tone.
type Beeper interface {
	Beep(d time.Duration)
}

// Logger defines the logging interface used by the actuators.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

// Noop is an Actuator with no hardware behind it.
type Noop struct{}

func (Noop) SetLocked()               {}
func (Noop) SetUnlocked()             {}
func (Noop) SoundAlarm(time.Duration) {}
func (Noop) Beep(time.Duration)       {}

// Door combines the lock LED and the buzzer.
type Door struct {
	LED    *LED
	Buzzer *Buzzer
}

// NewSimulatedDoor builds a Door on LogPins.
func NewSimulatedDoor(logger Logger) *Door {
	return &Door{
		LED:    NewLED(NewLogPin("lock_led", logger)),
		Buzzer: NewBuzzer(NewLogPin("buzzer", logger)),
	}
}

func (d *Door) SetLocked()                   { d.LED.SetLocked() }
func (d *Door) SetUnlocked()                 { d.LED.SetUnlocked() }
func (d *Door) SoundAlarm(dur time.Duration) { d.Buzzer.SoundAlarm(dur) }
func (d *Door) Beep(dur time.Duration)       { d.Buzzer.Beep(dur) }

// Close silences the buzzer and leaves the LED showing locked.
func (d *Door) Close() {
	d.Buzzer.StopAlarm()
	d.LED.SetLocked()
}
