package actuator

import "sync"

// Pin is a single digital output.
type Pin interface {
	Set(high bool)
}

// LogPin is a simulated Pin. It keeps its level in memory and logs changes.
type LogPin struct {
	name   string
	logger Logger

	mu      sync.Mutex
	high    bool
	toggles int
}

// NewLogPin creates a LogPin. logger may be nil.
func NewLogPin(name string, logger Logger) *LogPin {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogPin{name: name, logger: logger}
}

// Set drives the pin. Setting the current level again is a no-op.
func (p *LogPin) Set(high bool) {
	p.mu.Lock()
	if p.high == high {
		p.mu.Unlock()
		return
	}
	p.high = high
	p.toggles++
	p.mu.Unlock()

	p.logger.Debug("pin changed", "pin", p.name, "high", high)
}

// High reports the current level.
func (p *LogPin) High() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.high
}

// Toggles returns how many times the level changed.
func (p *LogPin) Toggles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toggles
}
