package ratelimit

import (
	"sync"
	"time"
)

// Log categories used by the coordinator.
const (
	CategoryAuthorizedUser = "authorized_user"
	CategoryUnknownUser    = "unknown_user"
	CategoryAdminAllow     = "admin_allow"
	CategoryAdminDeny      = "admin_deny"
	CategorySystemLog      = "system_log"
)

// DefaultWindow is the suppression window used when none is configured.
const DefaultWindow = 60 * time.Second

// Limiter tracks the last logged time per category.
type Limiter struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewLimiter creates a Limiter. A window of zero or less never suppresses.
func NewLimiter(window time.Duration) *Limiter {
	return &Limiter{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Window returns the configured suppression window.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// ShouldLog reports whether a line for category may be written at now.
//
// It returns true, and records now, when the category has never been seen
// or at least one window has passed since it was last recorded. Check and
// record happen under one lock, so two concurrent callers for the same
// category cannot both get true inside one window.
func (l *Limiter) ShouldLog(category string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.last[category]; ok && now.Sub(last) < l.window {
		return false
	}
	l.last[category] = now
	return true
}
