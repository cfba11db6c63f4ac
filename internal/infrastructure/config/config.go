package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Smart Lock Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Node       NodeConfig       `yaml:"node"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
	Lock       LockConfig       `yaml:"lock"`
	Attendance AttendanceConfig `yaml:"attendance"`
	Intercom   IntercomConfig   `yaml:"intercom"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// SiteConfig identifies the access point this process coordinates.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// NodeConfig describes the role this process plays on the bus.
type NodeConfig struct {
	// Role is "door" (announces DeviceInfo, runs the door end of the intercom)
	// or "admin" (runs the admin end of the intercom).
	Role string `yaml:"role"`

	// IP overrides outbound address detection for the DeviceInfo announcement.
	IP string `yaml:"ip"`

	// Actuators selects the actuator implementation: "simulated" or "none".
	Actuators string `yaml:"actuators"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains settings for the human-readable access log file.
// Each logged event is one line: "<timestamp> - <message>".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

// LockConfig contains coordinator timing settings.
//
// The relock delay and rate-limit window have no documented rationale beyond
// the values used on the original hardware; they are defaults, not contracts.
type LockConfig struct {
	// RelockDelay is how long the door stays unlocked before auto-relock.
	// Default: 3s
	RelockDelay time.Duration `yaml:"relock_delay"`

	// AlarmDuration is how long the buzzer sounds on lockdown.
	// Default: 10s
	AlarmDuration time.Duration `yaml:"alarm_duration"`

	// RateLimitWindow is the per-category log suppression window.
	// Default: 60s
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`

	// StateInterval is how often the retained state snapshot is published.
	// 0 disables the periodic announcement.
	StateInterval time.Duration `yaml:"state_interval"`

	// QueueSize bounds the coordinator's inbound event queue.
	QueueSize int `yaml:"queue_size"`
}

// AttendanceConfig contains attendance marking settings.
type AttendanceConfig struct {
	Enabled     bool          `yaml:"enabled"`
	ReMarkDelay time.Duration `yaml:"re_mark_delay"`
	CacheSize   int           `yaml:"cache_size"`
}

// IntercomConfig contains voice intercom settings.
type IntercomConfig struct {
	Enabled bool `yaml:"enabled"`

	// AdminPort is where the admin end listens (door sends here).
	// Default: 12346
	AdminPort int `yaml:"admin_port"`

	// DoorPort is where the door end listens (admin sends here).
	// Default: 12345
	DoorPort int `yaml:"door_port"`

	// FrameSize is the PCM frame size in bytes.
	// Default: 2048 (1024 samples of 16-bit mono)
	FrameSize int `yaml:"frame_size"`

	// StopTimeout bounds how long Stop waits for the stream loops.
	// Default: 1s
	StopTimeout time.Duration `yaml:"stop_timeout"`

	// Audio selects the audio device: "silent" or "command".
	// Default: silent
	Audio string `yaml:"audio"`

	// CaptureCommand writes raw 16 kHz mono S16_LE PCM to stdout.
	// Used when Audio is "command".
	CaptureCommand []string `yaml:"capture_command"`

	// PlaybackCommand plays raw PCM read from stdin.
	// Used when Audio is "command".
	PlaybackCommand []string `yaml:"playback_command"`
}

// Intercom audio devices.
const (
	AudioSilent  = "silent"
	AudioCommand = "command"
)

// MetricsConfig contains the Prometheus/health HTTP endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SMARTLOCK_SECTION_KEY
// For example: SMARTLOCK_DATABASE_PATH, SMARTLOCK_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "lock-001",
			Name: "Front Door",
		},
		Node: NodeConfig{
			Role:      "door",
			Actuators: "simulated",
		},
		Database: DatabaseConfig{
			Path:        "./data/smartlock.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 2,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./data/smartlock_access.log",
				MaxSize:    10,
				MaxBackups: 5,
				MaxAge:     90,
			},
		},
		Lock: LockConfig{
			RelockDelay:     3 * time.Second,
			AlarmDuration:   10 * time.Second,
			RateLimitWindow: 60 * time.Second,
			QueueSize:       256,
		},
		Attendance: AttendanceConfig{
			Enabled:     true,
			ReMarkDelay: 60 * time.Second,
			CacheSize:   1024,
		},
		Intercom: IntercomConfig{
			AdminPort:   12346,
			DoorPort:    12345,
			FrameSize:   2048,
			StopTimeout: time.Second,
			Audio:       AudioSilent,
			CaptureCommand: []string{
				"arecord", "-q", "-t", "raw", "-f", "S16_LE", "-r", "16000", "-c", "1",
			},
			PlaybackCommand: []string{
				"aplay", "-q", "-t", "raw", "-f", "S16_LE", "-r", "16000", "-c", "1",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9310",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SMARTLOCK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SMARTLOCK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("SMARTLOCK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SMARTLOCK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SMARTLOCK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("SMARTLOCK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("SMARTLOCK_NODE_IP"); v != "" {
		cfg.Node.IP = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	switch c.Node.Role {
	case "door", "admin":
	default:
		errs = append(errs, `node.role must be "door" or "admin"`)
	}

	switch c.Node.Actuators {
	case "simulated", "none":
	default:
		errs = append(errs, `node.actuators must be "simulated" or "none"`)
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.Lock.RelockDelay <= 0 {
		errs = append(errs, "lock.relock_delay must be positive")
	}
	if c.Lock.AlarmDuration <= 0 {
		errs = append(errs, "lock.alarm_duration must be positive")
	}
	if c.Lock.RateLimitWindow < 0 {
		errs = append(errs, "lock.rate_limit_window must not be negative")
	}
	if c.Lock.StateInterval < 0 {
		errs = append(errs, "lock.state_interval must not be negative")
	}

	if c.Intercom.Enabled {
		if c.Intercom.AdminPort < 1 || c.Intercom.AdminPort > 65535 ||
			c.Intercom.DoorPort < 1 || c.Intercom.DoorPort > 65535 {
			errs = append(errs, "intercom ports must be between 1 and 65535")
		}
		if c.Intercom.AdminPort == c.Intercom.DoorPort {
			errs = append(errs, "intercom.admin_port and intercom.door_port must differ")
		}
		switch c.Intercom.Audio {
		case AudioSilent:
		case AudioCommand:
			if len(c.Intercom.CaptureCommand) == 0 || len(c.Intercom.PlaybackCommand) == 0 {
				errs = append(errs, "intercom.capture_command and intercom.playback_command are required for command audio")
			}
		default:
			errs = append(errs, fmt.Sprintf("intercom.audio must be %q or %q, got %q", AudioSilent, AudioCommand, c.Intercom.Audio))
		}
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerAddress returns the host:port of the configured broker.
func (c *Config) BrokerAddress() string {
	return fmt.Sprintf("%s:%d", c.MQTT.Broker.Host, c.MQTT.Broker.Port)
}
