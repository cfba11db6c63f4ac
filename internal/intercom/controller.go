package intercom

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlock-core/internal/message"
)

var topics = mqtt.Topics{}

// commandQueueSize bounds voice commands waiting for the Run loop.
const commandQueueSize = 16

// Subscriber registers bus handlers.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Streamer is the part of Session the Controller drives.
type Streamer interface {
	Start(peer string, role Role) error
	Stop()
	State() State
}

// DoorAddress is the last door announcement seen on the bus.
type DoorAddress struct {
	IP     string
	SeenAt time.Time
}

// Controller starts and stops a Session from bus commands.
//
// HandleMessage only queues voice commands; Run applies them in arrival
// order, so a slow Stop never holds up bus delivery.
type Controller struct {
	session  Streamer
	role     Role
	logger   Logger
	now      func() time.Time
	commands chan message.VoiceCommand

	mu   sync.Mutex
	door DoorAddress
}

// NewController creates a Controller playing role.
func NewController(session Streamer, role Role, logger Logger) (*Controller, error) {
	if role != RoleAdmin && role != RoleDoor {
		return nil, ErrInvalidRole
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		session:  session,
		role:     role,
		logger:   logger,
		now:      time.Now,
		commands: make(chan message.VoiceCommand, commandQueueSize),
	}, nil
}

// Run applies queued voice commands until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.commands:
			c.apply(cmd)
		}
	}
}

// Subscribe registers the controller on voice_comm and device_info.
func (c *Controller) Subscribe(sub Subscriber) error {
	if err := sub.Subscribe(topics.VoiceComm(), mqtt.QoSAtMostOnce, c.HandleMessage); err != nil {
		return err
	}
	return sub.Subscribe(topics.DeviceInfo(), mqtt.QoSAtMostOnce, c.HandleMessage)
}

// Door returns the last announced door address.
func (c *Controller) Door() (DoorAddress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.door, c.door.IP != ""
}

// HandleMessage is the bus handler for voice_comm and device_info.
func (c *Controller) HandleMessage(topic string, payload []byte) error {
	switch topic {
	case topics.DeviceInfo():
		info, err := message.DecodeDeviceInfo(payload)
		if err != nil {
			return c.dropped(topic, err)
		}
		c.mu.Lock()
		c.door = DoorAddress{IP: info.IP, SeenAt: c.now()}
		c.mu.Unlock()
		c.logger.Info("door address announced", "ip", info.IP)

	case topics.VoiceComm():
		cmd, err := message.DecodeVoiceCommand(payload)
		if err != nil {
			return c.dropped(topic, err)
		}
		select {
		case c.commands <- cmd:
		default:
			c.logger.Warn("intercom command dropped, queue full", "action", cmd.Action)
		}
	}
	return nil
}

func (c *Controller) apply(cmd message.VoiceCommand) {
	if cmd.Action == message.VoiceStop {
		c.session.Stop()
		return
	}

	if c.session.State() == StateStreaming {
		c.logger.Debug("intercom start ignored, already streaming")
		return
	}

	peer := c.peerFor(cmd)
	if peer == "" {
		c.logger.Error("intercom start without peer address", "role", c.role)
		return
	}
	if err := c.session.Start(peer, c.role); err != nil && !errors.Is(err, ErrAlreadyStreaming) {
		c.logger.Error("starting intercom", "peer", peer, "error", err)
	}
}

// peerFor picks the remote address for this end. The admin falls back to
// the last device_info announcement; that address is never re-checked, so
// the stream may go nowhere if the door has moved.
func (c *Controller) peerFor(cmd message.VoiceCommand) string {
	if c.role == RoleDoor {
		return cmd.AdminIP
	}
	if cmd.IP != "" {
		return cmd.IP
	}
	door, ok := c.Door()
	if !ok {
		return ""
	}
	c.logger.Warn("using announced door address, liveness unknown",
		"ip", door.IP, "age", c.now().Sub(door.SeenAt).Round(time.Second))
	return door.IP
}

func (c *Controller) dropped(topic string, err error) error {
	if errors.Is(err, message.ErrIgnored) {
		return nil
	}
	c.logger.Error("malformed message dropped", "topic", topic, "error", err)
	return nil
}
