// Package logger wraps zerolog with the console and JSON setups used by pinchvol.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var pid = os.Getpid()

// Logger is a thin wrapper over a zerolog.Logger.
type Logger struct {
	logger *zerolog.Logger
}

func level(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// New returns a JSON logger writing to stderr.
func New(debug bool) *Logger {
	logger := zerolog.New(os.Stderr).Level(level(debug)).With().Timestamp().Int("pid", pid).Logger()
	return &Logger{logger: &logger}
}

// NewConsole returns a human-readable logger writing to stdout.
// The tag is printed in front of every line.
func NewConsole(debug bool, tag string, noColor bool) *Logger {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.0000", NoColor: noColor,
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			"s",
			"c",
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{"s", "c"},
	}
	if noColor {
		output.FormatMessage = func(i any) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%v", i)
		}
	}
	logger := zerolog.New(output).Level(level(debug)).With().
		Str("s", tag).
		Str("c", " ").
		Timestamp().Logger()
	return &Logger{logger: &logger}
}

// NewWriter returns a logger writing JSON lines to w. Used by tests.
func NewWriter(w io.Writer, debug bool) *Logger {
	logger := zerolog.New(w).Level(level(debug)).With().Timestamp().Logger()
	return &Logger{logger: &logger}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	logger := zerolog.Nop()
	return &Logger{logger: &logger}
}

// Extend returns a child logger with the context fields of ctx.
func (l *Logger) Extend(ctx zerolog.Context) *Logger {
	logger := ctx.Logger()
	return &Logger{logger: &logger}
}

// Component returns a child logger tagged with the component name c.
func (l *Logger) Component(c string) *Logger {
	return l.Extend(l.With().Str("c", c))
}

// With creates a child logger context.
func (l *Logger) With() zerolog.Context { return l.logger.With() }

// Debug starts a new message with debug level.
// You must call Msg on the returned event in order to send the event.
func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }

// Info starts a new message with info level.
func (l *Logger) Info() *zerolog.Event { return l.logger.Info() }

// Warn starts a new message with warn level.
func (l *Logger) Warn() *zerolog.Event { return l.logger.Warn() }

// Error starts a new message with error level.
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }

// Fatal starts a new message with fatal level. The os.Exit(1) function
// is called by the Msg method.
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

// Every returns a sampled child logger that lets one event through per period.
// Per-frame code logs through it so a stuck camera does not flood the output.
func (l *Logger) Every(period time.Duration) *Logger {
	logger := l.logger.Sample(&zerolog.BurstSampler{Burst: 1, Period: period})
	return &Logger{logger: &logger}
}
