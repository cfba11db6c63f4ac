// Package influxdb records lock telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, batched writes and health monitoring.
//
// # Measurements
//
//   - lock_events: tags site, event, source; fields locked, emergency
//   - access_decisions: tags site, status; field user
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAccessDecision("Alice", true, time.Now())
//
// Writes are non-blocking and silently dropped once the client is closed.
// Failed batches are counted (WriteFailures) and delivered through the
// callback set with SetOnError. Telemetry is optional: the lock runs the
// same with or without it.
package influxdb
