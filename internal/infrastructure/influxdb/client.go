package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// pointWriter is the part of api.WriteAPI the Write* helpers use.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Client writes lock telemetry to one InfluxDB bucket.
//
// Points are batched by the library and sent in the background, so a slow
// or failing server never holds up the coordinator. Failed batches are
// counted and passed to the SetOnError callback.
//
// Thread Safety: safe for concurrent use.
type Client struct {
	points   pointWriter
	ping     func(ctx context.Context) error
	shutdown func()
	site     string

	mu            sync.RWMutex
	open          bool
	onError       func(err error)
	writeFailures int
}

// Connect pings the server and opens a batching writer for cfg.Bucket.
// ctx bounds the ping, capped at ten seconds. Every point is tagged with
// siteID.
func Connect(ctx context.Context, cfg config.InfluxDBConfig, siteID string) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))
	ping := func(ctx context.Context) error { return pingServer(ctx, client) }

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	c := &Client{
		points:   writeAPI,
		ping:     ping,
		shutdown: client.Close,
		site:     siteID,
		open:     true,
	}
	go c.watchWriteErrors(writeAPI.Errors())
	return c, nil
}

func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}
	// #nosec G115 -- both values are positive here
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).
		SetFlushInterval(uint(flush) * uint(time.Second/time.Millisecond))
}

func pingServer(ctx context.Context, client influxdb2.Client) error {
	ready, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if !ready {
		return errors.New("server not ready")
	}
	return nil
}

func (c *Client) watchWriteErrors(errs <-chan error) {
	for err := range errs {
		c.mu.Lock()
		c.writeFailures++
		callback := c.onError
		c.mu.Unlock()

		if callback != nil {
			callback(err)
		}
	}
}

// SetOnError sets the callback for failed batch writes.
func (c *Client) SetOnError(callback func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = callback
}

// WriteFailures returns how many batch writes have failed since Connect.
func (c *Client) WriteFailures() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.writeFailures
}

// IsConnected reports whether the client is open. It does not contact the
// server; HealthCheck does.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// HealthCheck pings the server. It returns ErrNotConnected after Close.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.ping(pingCtx); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Flush sends buffered points now. It is a no-op after Close.
func (c *Client) Flush() {
	if !c.IsConnected() {
		return
	}
	c.points.Flush()
}

// Close flushes pending points and releases the client. Later writes are
// dropped. Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()

	if !wasOpen {
		return nil
	}
	c.points.Flush()
	if c.shutdown != nil {
		c.shutdown()
	}
	return nil
}
