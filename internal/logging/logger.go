package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	baseMu sync.RWMutex
	base   = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Setup configures the sink shared by every Logger. level is a zerolog
// level name ("debug", "info", ...); format "console" switches to the
// human-readable writer, anything else emits JSON lines.
func Setup(level, format string) error {
	return SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) error {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	baseMu.Lock()
	base = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	baseMu.Unlock()
	return nil
}

func current() zerolog.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return base
}

// Logger provides structured logging for one component
type Logger struct {
	prefix string
	logger zerolog.Logger
}

// NewLogger creates a new logger tagged with a component prefix
func NewLogger(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		logger: current().With().Str("component", prefix).Logger(),
	}
}

// With returns a child logger that adds the given key-value pairs to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	return &Logger{prefix: l.prefix, logger: ctx.Logger()}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.logger.Info(), msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.logger.Warn(), msg, keysAndValues...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.logger.Error(), msg, keysAndValues...)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logWithKV(l.logger.Debug(), msg, keysAndValues...)
}

func (l *Logger) logWithKV(ev *zerolog.Event, msg string, keysAndValues ...interface{}) {
	if ev == nil {
		return
	}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		switch v := keysAndValues[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case string:
			ev = ev.Str(key, v)
		case int:
			ev = ev.Int(key, v)
		case int64:
			ev = ev.Int64(key, v)
		case float64:
			ev = ev.Float64(key, v)
		case bool:
			ev = ev.Bool(key, v)
		case time.Duration:
			ev = ev.Dur(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

// AsynqLogger adapts l to the asynq.Logger interface so the queue server
// writes through the same sink.
func (l *Logger) AsynqLogger() *AsynqAdapter {
	return &AsynqAdapter{l: l}
}

// AsynqAdapter implements asynq.Logger.
type AsynqAdapter struct {
	l *Logger
}

func (a *AsynqAdapter) Debug(args ...interface{}) { a.l.logger.Debug().Msg(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Info(args ...interface{})  { a.l.logger.Info().Msg(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Warn(args ...interface{})  { a.l.logger.Warn().Msg(fmt.Sprint(args...)) }
func (a *AsynqAdapter) Error(args ...interface{}) { a.l.logger.Error().Msg(fmt.Sprint(args...)) }

// Fatal logs and exits, as asynq expects.
func (a *AsynqAdapter) Fatal(args ...interface{}) {
	a.l.logger.WithLevel(zerolog.FatalLevel).Msg(fmt.Sprint(args...))
	os.Exit(1)
}
