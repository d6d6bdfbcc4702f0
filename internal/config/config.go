package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"port" validate:"required,numeric"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	Store       string `mapstructure:"store" validate:"oneof=memory postgres"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Store postgres"`

	RateLimitRequests int           `mapstructure:"rate_limit_requests" validate:"gt=0"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window" validate:"gt=0"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes" validate:"gt=0"`

	NotifySink      string `mapstructure:"notify_sink" validate:"oneof=log nats redis"`
	NotifyWorkers   int    `mapstructure:"notify_workers" validate:"gt=0"`
	NotifyQueueSize int    `mapstructure:"notify_queue_size" validate:"gte=0"`
	NotifyRecipient string `mapstructure:"notify_recipient" validate:"required"`

	NATSURL      string `mapstructure:"nats_url" validate:"required_if=NotifySink nats"`
	NATSSubject  string `mapstructure:"nats_subject" validate:"required"`
	RedisAddr    string `mapstructure:"redis_addr" validate:"required_if=NotifySink redis"`
	RedisChannel string `mapstructure:"redis_channel" validate:"required"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

var defaults = map[string]any{
	"port":                "8080",
	"log_level":           "info",
	"store":               "memory",
	"database_url":        "",
	"rate_limit_requests": 120,
	"rate_limit_window":   time.Minute,
	"max_body_bytes":      10 * 1024,
	"notify_sink":         "log",
	"notify_workers":      3,
	"notify_queue_size":   256,
	"notify_recipient":    "project-channel@taskflow.example.com",
	"nats_url":            "",
	"nats_subject":        "tasks.created",
	"redis_addr":          "",
	"redis_channel":       "tasks.created",
	"shutdown_timeout":    10 * time.Second,
}

// Load reads configuration from the environment. Every key is the upper-case
// form of its mapstructure tag, e.g. RATE_LIMIT_WINDOW.
func Load() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
