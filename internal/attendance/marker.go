package attendance

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-core/internal/message"
)

const defaultCacheSize = 1024

// Marker marks attendance for recognised people.
//
// Thread Safety: Mark is safe for concurrent use.
type Marker struct {
	repo   Repository
	delay  time.Duration
	recent *expirable.LRU[string, time.Time]
}

// NewMarker creates a Marker writing to repo.
func NewMarker(repo Repository, cfg config.AttendanceConfig) *Marker {
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	ttl := cfg.ReMarkDelay
	if ttl <= 0 {
		// Zero TTL means "never expire" to the cache.
		ttl = time.Nanosecond
	}
	return &Marker{
		repo:   repo,
		delay:  cfg.ReMarkDelay,
		recent: expirable.NewLRU[string, time.Time](size, nil, ttl),
	}
}

// Mark records name as present at the given time.
//
// Unknown faces are never recorded. A name marked less than the re-mark
// delay ago is skipped without touching the database. It reports whether a
// new row was written.
func (m *Marker) Mark(ctx context.Context, name string, at time.Time) (bool, error) {
	if name == "" || name == message.UnknownUser {
		return false, nil
	}
	if last, ok := m.recent.Get(name); ok && at.Sub(last) < m.delay {
		return false, nil
	}

	written, err := m.repo.Insert(ctx, NewRecord(name, at))
	if err != nil {
		return false, err
	}
	// Only a stored mark starts the re-mark delay; a failed one is retried
	// on the next sighting.
	m.recent.Add(name, at)
	return written, nil
}
