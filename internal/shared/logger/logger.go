package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/types"
)

// Init configures the global zerolog logger. It must run once, before
// any component starts logging.
func Init(cfg types.LogConf) error {
	levelStr := strings.ToLower(cfg.Level)
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
		fmt.Fprintf(os.Stderr, "Unknown log level '%s', defaulting to 'info'\n", levelStr)
	}

	// Force all timestamps to be in UTC.
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}

	log.Logger = zerolog.New(consoleWriter).
		Level(level).
		With().
		Timestamp().
		Logger()

	Info().Msgf("Logger initialized with level: %s", level.String())
	return nil
}

// WithComponent returns a child logger tagged with a component name,
// used to tell the output of different modules apart.
func WithComponent(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

// Debug starts a new message with debug level.
func Debug() *zerolog.Event { return log.Debug() }

// Info starts a new message with info level.
func Info() *zerolog.Event { return log.Info() }

// Warn starts a new message with warning level.
func Warn() *zerolog.Event { return log.Warn() }

// Error starts a new message with error level.
func Error() *zerolog.Event { return log.Error() }

// Fatal starts a new message with fatal level. The program will exit.
func Fatal() *zerolog.Event { return log.Fatal() }
