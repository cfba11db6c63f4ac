package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlock-core/internal/message"
	"github.com/nerrad567/smartlock-core/internal/recognition"
)

var topics = mqtt.Topics{}

type command struct {
	args int
	run  func(ctx context.Context, c *cli, bus Bus, args []string) error
}

var commands = map[string]command{
	"unlock":      {0, control(message.CommandUnlock)},
	"lockdown":    {0, control(message.CommandLockdown)},
	"voice-start": {2, voiceStart},
	"voice-stop":  {0, voiceStop},
	"log":         {1, systemLog},
	"identify":    {2, identify},
	"watch":       {0, watch},
}

func publish(bus Bus, topic string, v any, qos byte) error {
	payload, err := message.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", topic, err)
	}
	if err := bus.Publish(topic, payload, qos, false); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func control(cmd message.Command) func(context.Context, *cli, Bus, []string) error {
	return func(_ context.Context, c *cli, bus Bus, _ []string) error {
		if err := publish(bus, topics.Control(), message.NewControl(cmd, message.SourceAdmin, c.now()), mqtt.QoSExactlyOnce); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "sent %s\n", cmd)
		return nil
	}
}

func voiceStart(_ context.Context, c *cli, bus Bus, args []string) error {
	cmd := message.VoiceCommand{Action: message.VoiceStart, IP: args[0], AdminIP: args[1]}
	if err := publish(bus, topics.VoiceComm(), cmd, mqtt.QoSAtLeastOnce); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "intercom starting: door %s, admin %s\n", args[0], args[1])
	return nil
}

func voiceStop(_ context.Context, c *cli, bus Bus, _ []string) error {
	if err := publish(bus, topics.VoiceComm(), message.VoiceCommand{Action: message.VoiceStop}, mqtt.QoSAtLeastOnce); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "intercom stopping")
	return nil
}

func systemLog(_ context.Context, c *cli, bus Bus, args []string) error {
	if err := publish(bus, topics.System(), message.NewSystemLog(args[0]), mqtt.QoSExactlyOnce); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "logged")
	return nil
}

// identify publishes the access event a camera would for name at the
// given confidence, applying the same threshold.
func identify(_ context.Context, c *cli, bus Bus, args []string) error {
	confidence, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("confidence %q: %w", args[1], err)
	}

	reporter := recognition.NewReporter(bus,
		recognition.StaticClassifier{Label: args[0], Confidence: confidence},
		recognition.WithoutCameraRelay(),
	)
	access, err := reporter.Report(nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "access %s authorized=%t\n", access.User, access.Authorized)
	return nil
}

// watch prints events and admin actions until ctx is cancelled.
func watch(ctx context.Context, c *cli, bus Bus, _ []string) error {
	lines := make(chan string, 16)
	emit := func(line string) {
		select {
		case lines <- line:
		case <-ctx.Done():
		}
	}

	err := bus.Subscribe(topics.Events(), mqtt.QoSAtLeastOnce, func(_ string, payload []byte) error {
		ev, err := message.DecodeEvent(payload)
		if err != nil {
			emit(fmt.Sprintf("malformed event: %v", err))
			return nil
		}
		emit(fmt.Sprintf("%s  %-8s %s", ev.Timestamp, ev.Status, ev.Name))
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}

	err = bus.Subscribe(topics.AdminAction(), mqtt.QoSAtLeastOnce, func(_ string, payload []byte) error {
		act, err := message.DecodeAdminAction(payload)
		if err != nil {
			emit(fmt.Sprintf("malformed admin action: %v", err))
			return nil
		}
		emit(fmt.Sprintf("%s  %-8s %s", act.Timestamp, "admin", act.Message))
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to admin actions: %w", err)
	}

	fmt.Fprintf(c.stdout, "watching (since %s), Ctrl+C to stop\n", c.now().Format(time.Kitchen))
	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			fmt.Fprintln(c.stdout, line)
		}
	}
}
