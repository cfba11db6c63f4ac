// Smart Lock Core - access point coordinator
//
// This is the main entry point for one node of a smart lock deployment.
// A node runs in one of two roles:
//   - door: owns the lock state machine, drives the actuators, announces
//     its address on the bus and runs the door end of the intercom
//   - admin: runs the admin end of the intercom
//
// Both roles serve /healthz and /metrics. The broker being unreachable at
// start is not fatal; the node runs degraded and joins the bus once the
// broker comes up.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/smartlock-core/migrations"

	"github.com/nerrad567/smartlock-core/internal/actuator"
	"github.com/nerrad567/smartlock-core/internal/api"
	"github.com/nerrad567/smartlock-core/internal/attendance"
	"github.com/nerrad567/smartlock-core/internal/audit"
	"github.com/nerrad567/smartlock-core/internal/coordinator"
	"github.com/nerrad567/smartlock-core/internal/discovery"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/database"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/logging"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/smartlock-core/internal/intercom"
	"github.com/nerrad567/smartlock-core/internal/metrics"
	"github.com/nerrad567/smartlock-core/internal/ratelimit"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

const roleDoor = "door"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application body, separated from main for testability.
// Deferred closes run in reverse order of startup.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Smart Lock Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).Node(cfg.Site.ID, cfg.Node.Role)
	log.Info("configuration loaded", "path", configPath)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Everything publishes and subscribes through the bus from here on,
	// whether or not the broker is reachable yet.
	bus := mqtt.NewBus()
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := bus.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	collector := metrics.New(bus.IsConnected)

	influxClient, err := connectInflux(ctx, cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	auditRepo := audit.NewSQLiteRepository(db.DB)
	attendanceRepo := attendance.NewSQLiteRepository(db.DB)

	var coord *coordinator.Coordinator
	var coordDone, intercomDone chan struct{}
	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	if cfg.Node.Role == roleDoor {
		door := buildActuator(cfg.Node.Actuators, log)
		if closer, ok := door.(*actuator.Door); ok {
			defer func() {
				log.Info("releasing actuators")
				closer.Close()
			}()
		}

		accessLog := ratelimit.NewFileWriter(cfg.Logging.File)
		defer accessLog.Close() //nolint:errcheck // best-effort on shutdown
		limiter := ratelimit.NewLimiter(cfg.Lock.RateLimitWindow)
		emitter := ratelimit.NewEmitter(limiter, accessLog)
		emitter.SetOnSuppressed(collector.ObserveSuppressed)
		log.Info("access log ready", "path", cfg.Logging.File.Path, "rate_limit_window", limiter.Window())

		deps := coordinator.Deps{
			Config:    cfg.Lock,
			Publisher: bus,
			Actuator:  door,
			Emitter:   emitter,
			Audit:     auditRepo,
			Metrics:   collector,
			Logger:    log.Component("coordinator"),
		}
		if cfg.Attendance.Enabled {
			deps.Attendance = attendance.NewMarker(attendanceRepo, cfg.Attendance)
		}
		if influxClient != nil {
			deps.Telemetry = influxClient
		}

		coord, err = coordinator.New(deps)
		if err != nil {
			return fmt.Errorf("creating coordinator: %w", err)
		}
		if subErr := coord.Subscribe(bus); subErr != nil {
			return fmt.Errorf("subscribing coordinator: %w", subErr)
		}

		coordDone = make(chan struct{})
		go func() {
			defer close(coordDone)
			if runErr := coord.Run(runCtx); runErr != nil {
				log.Error("coordinator stopped with error", "error", runErr)
			}
		}()
	}

	if cfg.Intercom.Enabled {
		intercomLog := log.Component("intercom")
		session := intercom.NewSession(cfg.Intercom, intercom.NewOpener(cfg.Intercom, intercomLog), intercomLog)
		defer session.Stop()

		controller, ctlErr := intercom.NewController(session, intercom.Role(cfg.Node.Role), intercomLog)
		if ctlErr != nil {
			return fmt.Errorf("creating intercom controller: %w", ctlErr)
		}
		if subErr := controller.Subscribe(bus); subErr != nil {
			return fmt.Errorf("subscribing intercom: %w", subErr)
		}
		intercomDone = make(chan struct{})
		go func() {
			defer close(intercomDone)
			controller.Run(runCtx)
		}()
		log.Info("intercom ready",
			"admin_port", cfg.Intercom.AdminPort,
			"door_port", cfg.Intercom.DoorPort,
			"audio", cfg.Intercom.Audio,
		)
	}

	var onAttach func()
	if cfg.Node.Role == roleDoor {
		ip := discovery.ResolveIP(cfg.Node.IP)
		onAttach = func() {
			if annErr := discovery.Announce(bus, ip, time.Now()); annErr != nil {
				log.Warn("device info announcement failed", "ip", ip, "error", annErr)
				return
			}
			log.Info("device info announced", "ip", ip)
		}
	}
	if connErr := connectBus(runCtx, cfg, bus, log, onAttach); connErr != nil {
		return connErr
	}

	if cfg.Metrics.Enabled {
		apiDeps := api.Deps{
			Config:     cfg.Metrics,
			Logger:     log.Component("api"),
			Bus:        bus,
			Metrics:    collector.Handler(),
			Audit:      auditRepo,
			Attendance: attendanceRepo,
			Version:    version,
		}
		if coord != nil {
			apiDeps.State = coord
		}
		if influxClient != nil {
			apiDeps.Telemetry = influxClient
		}
		server, apiErr := api.New(apiDeps)
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Stop the coordinator before the bus and database it writes to.
	stopRun()
	if intercomDone != nil {
		<-intercomDone
	}
	if coordDone != nil {
		<-coordDone
	}
	if influxClient != nil {
		influxClient.Flush()
	}

	log.Info("Smart Lock Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SMARTLOCK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SMARTLOCK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectBus makes one connection attempt and attaches it to bus. An
// unreachable broker leaves the bus detached while a background loop keeps
// retrying; only a client identity failure is fatal. onAttach, if set, runs
// once after the connection is attached.
func connectBus(ctx context.Context, cfg *config.Config, bus *mqtt.Bus, log *logging.Logger, onAttach func()) error {
	attach := func(client *mqtt.Client) {
		client.SetLogger(log)
		client.SetOnConnect(func() { log.Info("MQTT reconnected") })
		client.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		if err := bus.Attach(client); err != nil {
			log.Error("restoring subscriptions failed", "error", err)
		}
		log.Info("MQTT connected",
			"broker", cfg.BrokerAddress(),
			"client_id", client.ClientID(),
		)
		if onAttach != nil {
			onAttach()
		}
	}

	client, err := mqtt.Connect(cfg.MQTT)
	switch {
	case err == nil:
		attach(client)
		return nil
	case errors.Is(err, mqtt.ErrClientIdentity):
		return fmt.Errorf("connecting to MQTT: %w", err)
	}

	log.Warn("MQTT broker unavailable, running degraded",
		"broker", cfg.BrokerAddress(),
		"error", err,
	)
	go func() {
		client, err := mqtt.ConnectWithRetry(ctx, cfg.MQTT, log)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("giving up on MQTT broker", "error", err)
			}
			return
		}
		attach(client)
	}()
	return nil
}

// connectInflux returns nil when telemetry is disabled. An unreachable
// server is logged and treated as disabled; telemetry is never required.
func connectInflux(ctx context.Context, cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Site.ID)
	switch {
	case err == nil:
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
		return nil, nil
	case errors.Is(err, influxdb.ErrConnectionFailed):
		log.Warn("InfluxDB unreachable, telemetry disabled", "url", cfg.InfluxDB.URL, "error", err)
		return nil, nil
	default:
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// buildActuator returns the configured actuator set.
func buildActuator(kind string, log *logging.Logger) coordinator.Actuator {
	if kind == "simulated" {
		log.Info("using simulated actuators")
		return actuator.NewSimulatedDoor(log.Component("actuator"))
	}
	log.Info("actuators disabled")
	return actuator.Noop{}
}
