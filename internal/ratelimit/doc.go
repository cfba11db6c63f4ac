// Package ratelimit suppresses repeated log lines per category.
//
// The coordinator reacts to every inbound message, but the camera reports
// the same face on every classified frame. Limiter remembers when each
// category last produced a log line and answers whether a new line may be
// written; Emitter combines a Limiter with the append-only access log file.
//
// Only log lines are suppressed. Callers publish their derived bus events
// regardless of what ShouldLog returns.
//
// Thread Safety:
//   - Limiter and Emitter are safe for concurrent use.
package ratelimit
