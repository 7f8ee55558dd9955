package logging

import (
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger with configuration from environment variables.
// WORDREEL_LOG_LEVEL controls the log level: debug, info, warn, error (default: info)
func Init() {
	level := os.Getenv("WORDREEL_LOG_LEVEL")
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

// StartupLogger collects server identity, configuration, and feature flags,
// then emits a single structured zerolog event summarising the startup state.
type StartupLogger struct {
	name     string
	config   map[string]string
	features map[string]bool
}

// NewStartupLogger creates a StartupLogger for the given server name.
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:     name,
		config:   make(map[string]string),
		features: make(map[string]bool),
	}
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

// Feature registers a boolean capability flag (e.g. "ffmpeg", "ffprobe").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Log emits a single structured INFO log event with all collected information.
func (s *StartupLogger) Log() {
	evt := log.Info().
		Dict("server", zerolog.Dict().
			Str("name", s.name).
			Str("goVersion", runtime.Version()).
			Str("arch", runtime.GOARCH).
			Str("logLevel", os.Getenv("WORDREEL_LOG_LEVEL")))

	if len(s.config) > 0 {
		d := zerolog.Dict()
		for k, v := range s.config {
			d = d.Str(k, v)
		}
		evt = evt.Dict("config", d)
	}
	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	evt.Msg("Startup complete")
}
