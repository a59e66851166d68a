// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Publisher backends selectable via sinks.publisher.
const (
	PublisherNone   = "none"
	PublisherMemory = "memory"
	PublisherPubSub = "pubsub"
	PublisherRedis  = "redis"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Forwarder ForwarderConfig `mapstructure:"forwarder"`
	Sinks     SinksConfig     `mapstructure:"sinks"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig guards the update endpoint with an API key.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// TrackerConfig sets the default stream options for every subscription.
type TrackerConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	AutoDone    bool          `mapstructure:"auto_done"`
	BufferSize  int           `mapstructure:"buffer_size"`
}

// ForwarderConfig controls batching from the tracker into sinks.
type ForwarderConfig struct {
	MaxBatchReports int           `mapstructure:"max_batch_reports"`
	MaxBatchWait    time.Duration `mapstructure:"max_batch_wait"`
	SinkTimeout     time.Duration `mapstructure:"sink_timeout"`
	// MinInterval throttles the stream feeding the sinks; zero forwards every report.
	MinInterval time.Duration `mapstructure:"min_interval"`
}

// SinksConfig toggles the report sinks.
type SinksConfig struct {
	Log        bool   `mapstructure:"log"`
	Prometheus bool   `mapstructure:"prometheus"`
	Publisher  string `mapstructure:"publisher"`
	Topic      string `mapstructure:"topic"`
}

// PubSubConfig holds the Google Cloud project used by the pubsub publisher.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

// RedisConfig selects the Redis server used by the redis publisher.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROGRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("tracker.min_interval", "0s")
	v.SetDefault("tracker.auto_done", true)
	v.SetDefault("tracker.buffer_size", 16)
	v.SetDefault("forwarder.max_batch_reports", 100)
	v.SetDefault("forwarder.max_batch_wait", "250ms")
	v.SetDefault("forwarder.sink_timeout", "5s")
	v.SetDefault("forwarder.min_interval", "1s")
	v.SetDefault("sinks.log", false)
	v.SetDefault("sinks.prometheus", true)
	v.SetDefault("sinks.publisher", PublisherNone)
	v.SetDefault("sinks.topic", "progress-reports")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be > 0")
	}
	if c.Tracker.MinInterval < 0 {
		return fmt.Errorf("tracker.min_interval must be >= 0")
	}
	if c.Tracker.BufferSize < 0 {
		return fmt.Errorf("tracker.buffer_size must be >= 0")
	}
	if c.Forwarder.MinInterval < 0 {
		return fmt.Errorf("forwarder.min_interval must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Sinks.Publisher {
	case PublisherNone, PublisherMemory:
	case PublisherPubSub:
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id must be set when sinks.publisher is %q", PublisherPubSub)
		}
	case PublisherRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr must be set when sinks.publisher is %q", PublisherRedis)
		}
	default:
		return fmt.Errorf("unknown sinks.publisher %q", c.Sinks.Publisher)
	}
	if c.Sinks.Publisher != PublisherNone && c.Sinks.Topic == "" {
		return fmt.Errorf("sinks.topic must be set when a publisher is enabled")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
