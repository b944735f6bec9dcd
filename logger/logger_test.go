package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel(LevelDebug))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(LevelWarn))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel(LevelError))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("unknown"))
}

func TestSinkOptions(t *testing.T) {
	cfg := defaultConfig
	WithFile("logs/app.log")(&cfg)
	WithoutConsole()(&cfg)
	WithoutColor()(&cfg)

	assert.Equal(t, "logs/app.log", cfg.LogFile)
	assert.False(t, cfg.ToConsole)
	assert.False(t, cfg.Colored)
}

func TestNopDoesNotPanic(t *testing.T) {
	l := Nop()
	l.Debug("dropped %d", 1)
	l.With("k", "v").Error("also dropped")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("REALTIME_LOG_FILE", "logs/x.log")
	t.Setenv("REALTIME_LOG_COLOR", "false")
	opts := FromEnv()
	assert.Len(t, opts, 2)
}
