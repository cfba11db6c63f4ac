package actuator

import (
	"sync"
	"time"
)

// Default alarm pattern: 0.2s on, 0.2s off.
const (
	DefaultAlarmOn  = 200 * time.Millisecond
	DefaultAlarmOff = 200 * time.Millisecond
)

// Buzzer sounds the alarm pattern and confirmation beeps.
type Buzzer struct {
	pin Pin

	// On and Off are the alarm pattern timings.
	On  time.Duration
	Off time.Duration

	mu     sync.Mutex
	active bool
	stop   chan struct{}
	done   chan struct{}
}

// NewBuzzer creates a silent Buzzer on pin with the default pattern.
func NewBuzzer(pin Pin) *Buzzer {
	pin.Set(false)
	return &Buzzer{pin: pin, On: DefaultAlarmOn, Off: DefaultAlarmOff}
}

// SoundAlarm runs the alarm pattern for d on its own goroutine.
// It is ignored while an alarm is already active.
func (b *Buzzer) SoundAlarm(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return
	}
	b.active = true
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.run(d, b.stop, b.done)
}

// Active reports whether an alarm is sounding.
func (b *Buzzer) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// StopAlarm silences a running alarm and waits for its goroutine to exit.
func (b *Buzzer) StopAlarm() {
	b.mu.Lock()
	if !b.active || b.stop == nil {
		b.mu.Unlock()
		return
	}
	stop, done := b.stop, b.done
	b.stop = nil
	b.mu.Unlock()

	close(stop)
	<-done
}

// Beep gives one tone of length d without blocking. It is skipped while
// the alarm is sounding.
func (b *Buzzer) Beep(d time.Duration) {
	if b.Active() {
		return
	}
	b.pin.Set(true)
	time.AfterFunc(d, func() {
		if !b.Active() {
			b.pin.Set(false)
		}
	})
}

func (b *Buzzer) run(d time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	deadline := time.NewTimer(d)
	defer deadline.Stop()
	defer func() {
		b.pin.Set(false)
		b.mu.Lock()
		b.active = false
		b.stop = nil
		b.mu.Unlock()
		close(done)
	}()

	for {
		for _, step := range []struct {
			high bool
			wait time.Duration
		}{{true, b.On}, {false, b.Off}} {
			b.pin.Set(step.high)
			t := time.NewTimer(step.wait)
			select {
			case <-stop:
				t.Stop()
				return
			case <-deadline.C:
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}
