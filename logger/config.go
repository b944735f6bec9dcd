package logger

import "github.com/taskpond/realtime/config"

// ----------------------------------------------------
// Sink configuration
// ----------------------------------------------------

// SinkConfig describes where and how log lines are written.
type SinkConfig struct {
	ToConsole  bool
	Colored    bool
	LogFile    string // rotating file sink when non-empty
	MaxSize    int    // MB
	MaxBackups int    // rotated files kept
	MaxAge     int    // days
	Compress   bool
}

var defaultConfig = SinkConfig{
	ToConsole:  true,
	Colored:    true,
	MaxSize:    10,
	MaxBackups: 5,
	MaxAge:     7,
	Compress:   true,
}

// Option mutates the sink configuration.
type Option func(*SinkConfig)

// WithFile enables the rotating file sink.
func WithFile(path string) Option {
	return func(c *SinkConfig) { c.LogFile = path }
}

// WithoutConsole disables the console sink.
func WithoutConsole() Option {
	return func(c *SinkConfig) { c.ToConsole = false }
}

// WithoutColor forces plain console output.
func WithoutColor() Option {
	return func(c *SinkConfig) { c.Colored = false }
}

// FromEnv builds sink options from REALTIME_LOG_* environment variables.
func FromEnv() []Option {
	var opts []Option
	if f := config.GetEnvStr(config.EnvPrefix+"LOG_FILE", ""); f != "" {
		opts = append(opts, WithFile(f))
	}
	if !config.GetEnvBool(config.EnvPrefix+"LOG_CONSOLE", true) {
		opts = append(opts, WithoutConsole())
	}
	if !config.GetEnvBool(config.EnvPrefix+"LOG_COLOR", true) {
		opts = append(opts, WithoutColor())
	}
	return opts
}
