// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPollInterval is returned when VIDEO_POLL_INTERVAL is not positive.
	ErrInvalidPollInterval = errors.New("config: VIDEO_POLL_INTERVAL must be positive")
	// ErrInvalidMaxPolls is returned when VIDEO_MAX_POLLS is negative.
	ErrInvalidMaxPolls = errors.New("config: VIDEO_MAX_POLLS must not be negative")
	// ErrInvalidWebhookTimeout is returned when WEBHOOK_TIMEOUT is not positive.
	ErrInvalidWebhookTimeout = errors.New("config: WEBHOOK_TIMEOUT must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port          int    `env:"PORT, default=8080" json:"port"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" json:"public_base_url,omitempty"`

	// Provider settings. The API key is optional at startup: the credential
	// gate keeps video requests blocked until one is selected.
	GeminiAPIKey     string `env:"GEMINI_API_KEY" json:"-"` // Masked in JSON
	GeminiAPIKeyFile string `env:"GEMINI_API_KEY_FILE" json:"gemini_api_key_file,omitempty"`
	GeminiBaseURL    string `env:"GEMINI_BASE_URL, default=https://generativelanguage.googleapis.com/v1beta" json:"gemini_base_url"`
	ImageModel       string `env:"IMAGE_MODEL, default=imagen-4.0-generate-001" json:"image_model"`
	VideoModel       string `env:"VIDEO_MODEL, default=veo-3.1-fast-generate-preview" json:"video_model"`
	TextModel        string `env:"TEXT_MODEL, default=gemini-2.5-flash" json:"text_model"`

	// Video polling settings. VideoMaxPolls of zero means no ceiling.
	VideoPollInterval time.Duration `env:"VIDEO_POLL_INTERVAL, default=10s" json:"video_poll_interval"`
	VideoMaxPolls     int           `env:"VIDEO_MAX_POLLS, default=0" json:"video_max_polls"`

	// Notification settings
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT, default=15s" json:"webhook_timeout"`

	// Storage settings
	MediaDir string `env:"MEDIA_DIR, default=/tmp/promptcast" json:"media_dir"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that numeric settings are within range.
func (c *Config) Validate() error {
	if c.VideoPollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.VideoMaxPolls < 0 {
		return ErrInvalidMaxPolls
	}
	if c.WebhookTimeout <= 0 {
		return ErrInvalidWebhookTimeout
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, GeminiAPIKeySet: %t, GeminiBaseURL: %s, ImageModel: %s, VideoModel: %s, TextModel: %s, VideoPollInterval: %s, VideoMaxPolls: %d, WebhookTimeout: %s, MediaDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.GeminiAPIKey != "",
		c.GeminiBaseURL,
		c.ImageModel,
		c.VideoModel,
		c.TextModel,
		c.VideoPollInterval,
		c.VideoMaxPolls,
		c.WebhookTimeout,
		c.MediaDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
