package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
)

const (
	serviceName = "smartlock"

	// redacted replaces the value of any attribute whose key names a secret.
	redacted = "[REDACTED]"
)

// secretKeys are attribute keys whose values never reach the log.
var secretKeys = []string{"password", "token", "secret"}

// Logger is the process logger: a slog.Logger whose entries all carry
// service and version.
//
// Thread Safety: safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds the logger described by cfg, writing to stdout or stderr.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(outputFor(cfg.Output), cfg, version)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: redactSecrets,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler).With("service", serviceName, "version", version)}
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps debug/info/warn/error (any case) to a slog level.
// Anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactSecrets masks string attributes such as mqtt_password or
// influx_token. Group membership does not matter; only the key does.
func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString || a.Value.String() == "" {
		return a
	}
	key := strings.ToLower(a.Key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, redacted)
		}
	}
	return a
}

// With returns a child Logger carrying args on every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Node tags entries with this process's site and bus role.
func (l *Logger) Node(site, role string) *Logger {
	return l.With("site", site, "role", role)
}

// Component tags entries with the subsystem that wrote them.
//
//	log.Component("coordinator").Info("door relocked")
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is the logger used until the configuration has been read:
// JSON to stdout at info.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}
