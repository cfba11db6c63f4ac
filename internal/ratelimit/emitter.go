package ratelimit

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
)

// lineLayout is the timestamp prefix of each access log line.
const lineLayout = "2006-01-02 15:04:05"

// bypassPrefix marks system messages that are always logged.
const bypassPrefix = "User:"

// Emitter writes rate-limited lines to the access log.
//
// Each line has the form "<timestamp> - <message>".
type Emitter struct {
	limiter *Limiter

	mu  sync.Mutex
	out io.Writer

	// onSuppressed, if set, is called with the category of each dropped line.
	onSuppressed func(category string)
}

// NewEmitter creates an Emitter writing to out.
func NewEmitter(limiter *Limiter, out io.Writer) *Emitter {
	return &Emitter{limiter: limiter, out: out}
}

// NewFileWriter returns a size-rotated, append-only writer for the access
// log described by cfg.
func NewFileWriter(cfg config.FileLoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

// SetOnSuppressed registers a callback invoked for every suppressed line.
func (e *Emitter) SetOnSuppressed(fn func(category string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSuppressed = fn
}

// Log writes message under category unless the category is inside its
// window. It reports whether the line was written.
func (e *Emitter) Log(category, message string, now time.Time) (bool, error) {
	if !e.limiter.ShouldLog(category, now) {
		e.suppressed(category)
		return false, nil
	}
	return true, e.write(message, now)
}

// LogSystem writes a free-form system message. Messages starting with
// "User:" bypass the limiter and leave the system_log timestamp untouched.
func (e *Emitter) LogSystem(message string, now time.Time) (bool, error) {
	if strings.HasPrefix(message, bypassPrefix) {
		return true, e.write(message, now)
	}
	return e.Log(CategorySystemLog, message, now)
}

func (e *Emitter) write(message string, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := fmt.Fprintf(e.out, "%s - %s\n", now.Format(lineLayout), message); err != nil {
		return fmt.Errorf("writing access log: %w", err)
	}
	return nil
}

func (e *Emitter) suppressed(category string) {
	e.mu.Lock()
	fn := e.onSuppressed
	e.mu.Unlock()
	if fn != nil {
		fn(category)
	}
}
