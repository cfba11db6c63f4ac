package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementLockEvents      = "lock_events"
	measurementAccessDecisions = "access_decisions"
)

// WriteLockEvent records an applied lock transition.
//
// event is the transition kind (unlock, lockdown, auto_relock, access_granted,
// access_denied) and source who caused it (admin, system, recognition).
// The fields carry the lock state after the transition.
//
// The write is non-blocking; points are batched and sent asynchronously.
func (c *Client) WriteLockEvent(event, source string, locked, emergency bool, at time.Time) {
	if !c.IsConnected() {
		return
	}

	c.points.WritePoint(write.NewPoint(
		measurementLockEvents,
		map[string]string{
			"site":   c.site,
			"event":  event,
			"source": source,
		},
		map[string]interface{}{
			"locked":    locked,
			"emergency": emergency,
		},
		at,
	))
}

// WriteAccessDecision records a recognition outcome.
//
// user is kept as a field, not a tag, so unknown visitors don't grow
// series cardinality.
func (c *Client) WriteAccessDecision(user string, granted bool, at time.Time) {
	if !c.IsConnected() {
		return
	}

	status := "denied"
	if granted {
		status = "granted"
	}

	c.points.WritePoint(write.NewPoint(
		measurementAccessDecisions,
		map[string]string{
			"site":   c.site,
			"status": status,
		},
		map[string]interface{}{
			"user": user,
		},
		at,
	))
}
