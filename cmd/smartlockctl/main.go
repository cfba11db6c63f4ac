// smartlockctl is the admin console for a smart lock deployment.
//
// It publishes admin commands on the bus and tails the coordinator's
// notices. Every command connects with its own generated client ID so
// it never displaces a running node.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
)

const defaultConfigPath = "configs/config.yaml"

// Bus is the part of the MQTT client the commands use.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Close() error
}

// cli carries the process environment so commands can be tested without
// a broker.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	dial   func(cfg config.MQTTConfig) (Bus, error)
	now    func() time.Time
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := &cli{
		stdout: os.Stdout,
		stderr: os.Stderr,
		dial:   dialBroker,
		now:    time.Now,
	}
	os.Exit(c.run(ctx, os.Args))
}

func dialBroker(cfg config.MQTTConfig) (Bus, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (c *cli) run(ctx context.Context, args []string) int {
	name := "smartlockctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}

	fset := flag.NewFlagSet(name, flag.ContinueOnError)
	fset.SetOutput(c.stderr)
	configPath := fset.String("config", configPathFromEnv(), "config file (broker settings)")
	host := fset.String("host", "", "override mqtt.broker.host")
	port := fset.Int("port", 0, "override mqtt.broker.port")
	fset.Usage = func() { c.usage(name) }

	if len(args) < 1 {
		c.usage(name)
		return 2
	}
	if err := fset.Parse(args[1:]); err != nil {
		return 2
	}
	rest := fset.Args()
	if len(rest) == 0 {
		c.usage(name)
		return 2
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(c.stderr, "unknown command %q\n", rest[0])
		c.usage(name)
		return 2
	}
	if len(rest)-1 != cmd.args {
		fmt.Fprintf(c.stderr, "%s: expected %d argument(s)\n", rest[0], cmd.args)
		c.usage(name)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	if *host != "" {
		cfg.MQTT.Broker.Host = *host
	}
	if *port != 0 {
		cfg.MQTT.Broker.Port = *port
	}
	cfg.MQTT.Broker.ClientID = ""

	bus, err := c.dial(cfg.MQTT)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: connecting to %s: %v\n", cfg.BrokerAddress(), err)
		return 1
	}
	defer bus.Close() //nolint:errcheck // process is exiting

	if err := cmd.run(ctx, c, bus, rest[1:]); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) usage(name string) {
	fmt.Fprintf(c.stderr, "usage: %s [-config <file>] [-host <host>] [-port <port>] <command>\n\n", name)
	fmt.Fprintf(c.stderr, "commands:\n")
	fmt.Fprintf(c.stderr, "  unlock                          unlock the door (admin override)\n")
	fmt.Fprintf(c.stderr, "  lockdown                        lock the door and sound the alarm\n")
	fmt.Fprintf(c.stderr, "  voice-start <door-ip> <admin-ip> start the intercom\n")
	fmt.Fprintf(c.stderr, "  voice-stop                      stop the intercom\n")
	fmt.Fprintf(c.stderr, "  log <message>                   write a system log entry\n")
	fmt.Fprintf(c.stderr, "  identify <name> <confidence>    inject a recognition result\n")
	fmt.Fprintf(c.stderr, "  watch                           print events and admin actions\n")
}

func configPathFromEnv() string {
	if path := os.Getenv("SMARTLOCK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads path, falling back to defaults when it does not exist.
// The console only needs broker settings.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
