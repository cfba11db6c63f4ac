package actuator

// LED is the lock indicator: on when locked, off when unlocked.
type LED struct {
	pin Pin
}

// NewLED creates an LED on pin, initially showing locked.
func NewLED(pin Pin) *LED {
	l := &LED{pin: pin}
	l.SetLocked()
	return l
}

func (l *LED) SetLocked()   { l.pin.Set(true) }
func (l *LED) SetUnlocked() { l.pin.Set(false) }
