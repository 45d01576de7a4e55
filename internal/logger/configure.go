// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/matthewbaird/estatein/internal/config"
)

// Configure installs the global logger. Dev mode writes colored console
// output at trace level; otherwise JSON lines at debug level.
func Configure(conf *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	var out io.Writer = os.Stdout
	level := zerolog.DebugLevel
	if conf.DevMode {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}
		level = zerolog.TraceLevel
	}

	if conf.LogFile != "" {
		f, err := os.OpenFile(conf.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			log.Panic().Err(err).Str("path", conf.LogFile).Msg("failed to open log file")
		}
		out = zerolog.MultiLevelWriter(f, out)
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Logger().
		Level(level)
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
