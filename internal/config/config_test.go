package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 120, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, int64(10240), cfg.MaxBodyBytes)
	assert.Equal(t, "log", cfg.NotifySink)
	assert.Equal(t, 3, cfg.NotifyWorkers)
	assert.Equal(t, 256, cfg.NotifyQueueSize)
	assert.Equal(t, "project-channel@taskflow.example.com", cfg.NotifyRecipient)
	assert.Equal(t, "tasks.created", cfg.NATSSubject)
	assert.Equal(t, "tasks.created", cfg.RedisChannel)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/tasks")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "2s")
	t.Setenv("NOTIFY_SINK", "nats")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, "postgres://u:p@localhost:5432/tasks", cfg.DatabaseURL)
	assert.Equal(t, 5, cfg.RateLimitRequests)
	assert.Equal(t, 2*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "nats", cfg.NotifySink)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE": "postgres"}},
		{"unknown store", map[string]string{"STORE": "mongo"}},
		{"nats without url", map[string]string{"NOTIFY_SINK": "nats"}},
		{"redis without addr", map[string]string{"NOTIFY_SINK": "redis"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"zero limit", map[string]string{"RATE_LIMIT_REQUESTS": "0"}},
		{"non numeric port", map[string]string{"PORT": "http"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
