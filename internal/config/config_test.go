package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  shutdown_timeout: 3s
auth:
  enabled: true
  api_key: secret
tracker:
  min_interval: 250ms
  auto_done: false
  buffer_size: 4
forwarder:
  max_batch_reports: 10
  max_batch_wait: 1s
sinks:
  log: true
  publisher: redis
  topic: jobs
redis:
  addr: redis:6379
  db: 2
logging:
  development: false
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, 250*time.Millisecond, cfg.Tracker.MinInterval)
	require.False(t, cfg.Tracker.AutoDone)
	require.Equal(t, 4, cfg.Tracker.BufferSize)
	require.Equal(t, 10, cfg.Forwarder.MaxBatchReports)
	require.Equal(t, time.Second, cfg.Forwarder.MaxBatchWait)
	require.True(t, cfg.Sinks.Log)
	require.Equal(t, PublisherRedis, cfg.Sinks.Publisher)
	require.Equal(t, "jobs", cfg.Sinks.Topic)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, 2, cfg.Redis.DB)
	require.Equal(t, "debug", cfg.Logging.Level)
}

// TestLoadDefaults checks the defaults applied without a config file.
func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.True(t, cfg.Tracker.AutoDone)
	require.Zero(t, cfg.Tracker.MinInterval)
	require.Equal(t, time.Second, cfg.Forwarder.MinInterval)
	require.True(t, cfg.Sinks.Prometheus)
	require.Equal(t, PublisherNone, cfg.Sinks.Publisher)
}

// TestLoadEnvOverrides reads PROGRESS_-prefixed environment variables.
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROGRESS_SERVER_PORT", "7070")
	t.Setenv("PROGRESS_TRACKER_MIN_INTERVAL", "2s")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 2*time.Second, cfg.Tracker.MinInterval)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Server:  ServerConfig{Port: 8080, RequestTimeout: time.Second},
			Sinks:   SinksConfig{Publisher: PublisherNone},
			Logging: LoggingConfig{Level: "info"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"request timeout", func(c *Config) { c.Server.RequestTimeout = 0 }, "server.request_timeout"},
		{"min interval", func(c *Config) { c.Tracker.MinInterval = -time.Second }, "tracker.min_interval"},
		{"buffer", func(c *Config) { c.Tracker.BufferSize = -1 }, "tracker.buffer_size"},
		{"auth", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"unknown publisher", func(c *Config) { c.Sinks.Publisher = "kafka" }, "unknown sinks.publisher"},
		{"pubsub project", func(c *Config) {
			c.Sinks.Publisher = PublisherPubSub
			c.Sinks.Topic = "t"
		}, "pubsub.project_id"},
		{"redis addr", func(c *Config) {
			c.Sinks.Publisher = PublisherRedis
			c.Sinks.Topic = "t"
		}, "redis.addr"},
		{"topic", func(c *Config) { c.Sinks.Publisher = PublisherMemory }, "sinks.topic"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tc.want), err.Error())
		})
	}
}
