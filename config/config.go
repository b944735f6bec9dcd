package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

// EnvPrefix is the prefix for all environment variables read by this module.
const EnvPrefix = "REALTIME_"

const (
	// DefaultPort is the plain (non-production) endpoint port.
	DefaultPort = 3000
	// DefaultPath is the live-channel endpoint path.
	DefaultPath = "/ws"
	// DefaultReconnectMax is the number of automatic reconnect attempts.
	DefaultReconnectMax = 5
	// DefaultReconnectBase is the first reconnect delay; doubles per attempt.
	DefaultReconnectBase = 1000 * time.Millisecond
	// DefaultPollInterval is the message polling fallback period.
	DefaultPollInterval = 5000 * time.Millisecond
)

// Config holds runtime settings for the live update layer.
type Config struct {
	Env           string        `json:"env" mapstructure:"env"`
	Host          string        `json:"host" mapstructure:"host"`
	Port          int           `json:"port" mapstructure:"port"`
	Path          string        `json:"path" mapstructure:"path"`
	ReconnectMax  int           `json:"reconnect_max" mapstructure:"reconnect_max"`
	ReconnectBase time.Duration `json:"reconnect_base" mapstructure:"reconnect_base"`
	PollInterval  time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	LogLevel      string        `json:"log_level" mapstructure:"log_level"`
}

// Default returns a default config.
func Default() *Config {
	return &Config{
		Env:           "development",
		Host:          "localhost",
		Port:          DefaultPort,
		Path:          DefaultPath,
		ReconnectMax:  DefaultReconnectMax,
		ReconnectBase: DefaultReconnectBase,
		PollInterval:  DefaultPollInterval,
		LogLevel:      "info",
	}
}

// FromEnv loads config from REALTIME_* environment variables over defaults.
func FromEnv() *Config {
	cfg := Default()
	cfg.Env = GetEnvStr(EnvPrefix+"ENV", cfg.Env)
	cfg.Host = GetEnvStr(EnvPrefix+"HOST", cfg.Host)
	cfg.Port = GetEnvInt(EnvPrefix+"PORT", cfg.Port)
	cfg.Path = GetEnvStr(EnvPrefix+"PATH", cfg.Path)
	cfg.ReconnectMax = GetEnvInt(EnvPrefix+"RECONNECT_MAX", cfg.ReconnectMax)
	cfg.ReconnectBase = GetEnvDuration(EnvPrefix+"RECONNECT_BASE", cfg.ReconnectBase)
	cfg.PollInterval = GetEnvDuration(EnvPrefix+"POLL_INTERVAL", cfg.PollInterval)
	cfg.LogLevel = GetEnvStr(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	return cfg
}

// Load loads config from a JSON file, substituting ${VAR} references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	data = ReplaceEnvVars(data)

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config json: %w", err)
	}
	return FromMap(raw)
}

// FromMap decodes a settings map over defaults.
func FromMap(m map[string]any) (*Config, error) {
	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, fmt.Errorf("decode config map: %w", err)
	}
	return cfg, nil
}

// Production reports whether the secure public endpoint should be used.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// WSAddress returns the live-channel endpoint: the secure public variant in
// production, the plain local variant (with configurable port) otherwise.
func (c *Config) WSAddress() string {
	u := url.URL{Path: c.Path}
	if c.Production() {
		u.Scheme = "wss"
		u.Host = c.Host
	} else {
		u.Scheme = "ws"
		u.Host = c.Host + ":" + strconv.Itoa(c.Port)
	}
	return u.String()
}
