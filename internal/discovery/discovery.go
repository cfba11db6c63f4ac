// Package discovery announces the door node's address on the bus.
//
// The door publishes one DeviceInfo message at start. There is no expiry
// or heartbeat: a consumer holding an old announcement cannot tell whether
// the door is still there.
package discovery

import (
	"fmt"
	"net"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlock-core/internal/message"
)

const (
	// DefaultProbe is dialled to find the outbound interface. UDP dial
	// sends nothing; it only selects a route.
	DefaultProbe = "8.8.8.8:80"

	// FallbackIP is used when no route exists.
	FallbackIP = "127.0.0.1"
)

// Publisher sends messages to the bus.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// LocalIP returns the address of the interface used to reach probe, or
// FallbackIP when there is none.
func LocalIP(probe string) string {
	conn, err := net.Dial("udp", probe)
	if err != nil {
		return FallbackIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return FallbackIP
	}
	return addr.IP.String()
}

// ResolveIP returns configured when set, otherwise the detected address.
func ResolveIP(configured string) string {
	if configured != "" {
		return configured
	}
	return LocalIP(DefaultProbe)
}

// Announce publishes the door's DeviceInfo once.
func Announce(pub Publisher, ip string, at time.Time) error {
	payload, err := message.Encode(message.NewDeviceInfo(ip, at))
	if err != nil {
		return fmt.Errorf("encoding device info: %w", err)
	}
	if err := pub.Publish(mqtt.Topics{}.DeviceInfo(), payload, mqtt.QoSAtLeastOnce, false); err != nil {
		return fmt.Errorf("publishing device info: %w", err)
	}
	return nil
}
