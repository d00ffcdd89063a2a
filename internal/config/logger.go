package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel overrides Logger.Level.
const EnvLogLevel = "ASARKIT_LOG_LEVEL"

// Logger holds logger configuration
type Logger struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	// Debug forces debug level regardless of Level and the environment.
	Debug bool `yaml:"-"`
}

// Configure returns a logger writing to w. ASARKIT_LOG_LEVEL wins over Level.
func (c Logger) Configure(w io.Writer) *slog.Logger {
	name := c.Level
	if env := os.Getenv(EnvLogLevel); env != "" {
		name = env
	}
	if c.Debug {
		name = "debug"
	}

	opts := &slog.HandlerOptions{
		Level: ParseLevel(name),
	}

	var handler slog.Handler
	if c.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
