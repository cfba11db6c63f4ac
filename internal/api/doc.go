// Package api implements the node's read-only HTTP surface.
//
// This package provides:
//   - /healthz reporting MQTT bus connectivity
//   - /state with the coordinator's current lock snapshot
//   - /metrics serving the Prometheus registry
//   - /api/v1/audit and /api/v1/attendance for paging stored records
//
// # Graceful Degradation
//
// The server runs while the broker is unreachable. /healthz reports the
// degraded state with a 503 so a supervisor can notice, and every other
// endpoint keeps working.
//
// Lock commands are never accepted over HTTP; they go through the bus.
package api
