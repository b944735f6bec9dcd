package logger

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var _ ILogger = (*Logger)(nil)

// ----------------------------------------------------
// Interface
// ----------------------------------------------------

// ILogger is the logging contract used across the module.
type ILogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(key string, value any) ILogger
	SetLevel(level string)
}

// ----------------------------------------------------
// Levels
// ----------------------------------------------------

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

func parseLevel(level string) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ----------------------------------------------------
// Logger implementation
// ----------------------------------------------------

// Logger wraps zerolog behind the ILogger interface.
type Logger struct {
	z zerolog.Logger
}

// NewLogger creates a logger for a component at the given level, writing to
// the sinks described by cfg.
func NewLogger(component, level string, opts ...Option) ILogger {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var sinks []io.Writer
	if cfg.ToConsole {
		out := io.Writer(os.Stderr)
		if cfg.Colored && isatty.IsTerminal(os.Stderr.Fd()) {
			out = consoleWriter(os.Stderr)
		}
		sinks = append(sinks, out)
	}
	if cfg.LogFile != "" {
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		})
	}
	if len(sinks) == 0 {
		sinks = append(sinks, io.Discard)
	}

	z := zerolog.New(zerolog.MultiLevelWriter(sinks...)).
		Level(parseLevel(level)).
		With().Timestamp().Str("module", component).Logger()
	return &Logger{z: z}
}

// Nop returns a logger that discards everything. Intended for tests.
func Nop() ILogger {
	return &Logger{z: zerolog.Nop()}
}

func (l *Logger) Debug(msg string, args ...any) { l.z.Debug().Msgf(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.z.Info().Msgf(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.z.Warn().Msgf(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.z.Error().Msgf(msg, args...) }

// With returns a logger with an attached field.
func (l *Logger) With(key string, value any) ILogger {
	return &Logger{z: l.z.With().Interface(key, value).Logger()}
}

// SetLevel changes the minimum emitted level.
func (l *Logger) SetLevel(level string) {
	l.z = l.z.Level(parseLevel(level))
}
