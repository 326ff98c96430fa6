// Package config handles YAML configuration loading, environment
// variable expansion, defaulting, and structural validation for
// deskagent.
package config

import "time"

// Config is the top-level configuration structure. Durations are
// expressed as Go duration strings ("30s", "2h") and validated by
// Validate; the *Duration accessors return the parsed values.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Provider ProviderConfig `yaml:"provider"`
	Memory   MemoryConfig   `yaml:"memory"`
	Sessions SessionsConfig `yaml:"sessions"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// ProviderConfig configures the LLM provider. An empty APIKey disables
// the primary classification and chat paths; the deterministic fallback
// still answers.
type ProviderConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   string `yaml:"timeout"`
}

// TimeoutDuration returns the parsed request timeout.
func (c ProviderConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// MemoryConfig configures the durable session memory store.
type MemoryConfig struct {
	// Path is the sqlite database file. Empty means
	// <data_dir>/memory.db; ":memory:" keeps everything in process.
	Path string `yaml:"path"`

	// DataDir is the directory for state files when Path is empty.
	DataDir string `yaml:"data_dir"`

	// WAL toggles write-ahead logging. Defaults to on.
	WAL *bool `yaml:"wal"`

	BusyTimeout string `yaml:"busy_timeout"`
}

// BusyTimeoutDuration returns the parsed sqlite busy timeout.
func (c MemoryConfig) BusyTimeoutDuration() time.Duration {
	return parseDuration(c.BusyTimeout, 5*time.Second)
}

// SessionsConfig bounds the in-memory session store.
type SessionsConfig struct {
	// Max caps concurrent sessions. Zero means unlimited.
	Max int `yaml:"max"`

	// MaxIdle is the idle time after which a session is pruned.
	MaxIdle string `yaml:"max_idle"`
}

// MaxIdleDuration returns the parsed session idle limit.
func (c SessionsConfig) MaxIdleDuration() time.Duration {
	return parseDuration(c.MaxIdle, 2*time.Hour)
}

// GatewayConfig configures the HTTP surface.
type GatewayConfig struct {
	Listen       string `yaml:"listen"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`

	// DefaultSession is the session id used when a request carries none.
	DefaultSession string `yaml:"default_session"`
}

// ReadTimeoutDuration returns the parsed server read timeout.
func (c GatewayConfig) ReadTimeoutDuration() time.Duration {
	return parseDuration(c.ReadTimeout, 30*time.Second)
}

// WriteTimeoutDuration returns the parsed server write timeout.
func (c GatewayConfig) WriteTimeoutDuration() time.Duration {
	return parseDuration(c.WriteTimeout, 60*time.Second)
}

// JobsConfig holds the cron expressions for background maintenance.
type JobsConfig struct {
	SessionPrune  string `yaml:"session_prune"`
	WALCheckpoint string `yaml:"wal_checkpoint"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// Defaults fills unset fields with production defaults.
func (c *Config) Defaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}
	if c.Provider.Model == "" {
		c.Provider.Model = "qwen-turbo"
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = 1024
	}
	if c.Provider.Timeout == "" {
		c.Provider.Timeout = "30s"
	}
	if c.Memory.DataDir == "" {
		c.Memory.DataDir = "data"
	}
	if c.Memory.BusyTimeout == "" {
		c.Memory.BusyTimeout = "5s"
	}
	if c.Sessions.MaxIdle == "" {
		c.Sessions.MaxIdle = "2h"
	}
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = ":8000"
	}
	if c.Gateway.ReadTimeout == "" {
		c.Gateway.ReadTimeout = "30s"
	}
	if c.Gateway.WriteTimeout == "" {
		c.Gateway.WriteTimeout = "60s"
	}
	if c.Gateway.DefaultSession == "" {
		c.Gateway.DefaultSession = "default"
	}
	if c.Jobs.SessionPrune == "" {
		c.Jobs.SessionPrune = "*/10 * * * *"
	}
	if c.Jobs.WALCheckpoint == "" {
		c.Jobs.WALCheckpoint = "0 * * * *"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "deskagent"
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = "localhost:4318"
	}
}

// parseDuration parses s, falling back to defaultVal when s is empty or
// malformed. Validate reports malformed values; the accessors stay total.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
