package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Conn is the subset of *Client that Bus drives.
type Conn interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	IsConnected() bool
	Close() error
}

// Bus is a late-bound handle on the broker connection.
//
// Components publish and subscribe through a Bus from startup, before a
// connection exists. While detached, Publish returns ErrNotConnected and
// Subscribe only records the subscription; Attach replays every recorded
// subscription on the new connection. This lets the process run degraded
// while the broker is unreachable and join the bus once it comes up.
type Bus struct {
	mu   sync.RWMutex
	conn Conn
	subs []subscription
}

// NewBus returns a detached Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Attach binds conn and subscribes every recorded topic on it.
// Subscription failures are joined into the returned error; the
// connection stays attached either way.
func (b *Bus) Attach(conn Conn) error {
	b.mu.Lock()
	b.conn = conn
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := conn.Subscribe(sub.topic, sub.qos, sub.handler); err != nil {
			errs = append(errs, fmt.Errorf("subscribing %s: %w", sub.topic, err))
		}
	}
	return errors.Join(errs...)
}

// Attached reports whether a connection has been bound.
func (b *Bus) Attached() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn != nil
}

func (b *Bus) current() Conn {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn
}

// Publish forwards to the attached connection.
func (b *Bus) Publish(topic string, payload []byte, qos byte, retained bool) error {
	conn := b.current()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.Publish(topic, payload, qos, retained)
}

// Subscribe records the subscription and, if attached, subscribes now.
func (b *Bus) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	b.mu.Lock()
	b.subs = append(b.subs, subscription{topic: topic, qos: qos, handler: handler})
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Subscribe(topic, qos, handler)
}

// IsConnected reports whether an attached connection is currently up.
func (b *Bus) IsConnected() bool {
	conn := b.current()
	return conn != nil && conn.IsConnected()
}

// HealthCheck returns ErrNotConnected while detached or disconnected.
func (b *Bus) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("bus health check: %w", err)
	}
	if !b.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close closes the attached connection, if any, and detaches it.
func (b *Bus) Close() error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}
