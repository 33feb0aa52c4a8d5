package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration for the server. Values come from
// the environment (optionally seeded from a .env file by the caller); there
// is no other persisted configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int `envconfig:"PORT" default:"3000"`

	// AllowedOrigin is the origin allowed to call the REST API and to
	// connect to the Socket.IO endpoint.
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"*"`

	// SessionStorePath is the sqlite file holding WhatsApp device
	// credentials between restarts.
	SessionStorePath string `envconfig:"SESSION_STORE_PATH" default:"whatsapp-store.db"`

	// SendDelay is the pause between two consecutive message sends. WhatsApp
	// throttles and eventually bans accounts that blast without pacing, so
	// lowering this is at the operator's own risk.
	SendDelay time.Duration `envconfig:"SEND_DELAY" default:"15s"`

	// LogLevel is a zerolog level name (trace, debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Debug switches logs to console format and Gin to debug mode.
	Debug bool `envconfig:"DEBUG" default:"false"`

	// QRTerminal additionally renders linking QR codes to stdout so a
	// device can be linked on headless deployments.
	QRTerminal bool `envconfig:"QR_TERMINAL" default:"false"`

	// MaxUploadMB caps the multipart body size of spreadsheet uploads.
	MaxUploadMB int64 `envconfig:"MAX_UPLOAD_MB" default:"16"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.SendDelay < 0 {
		return nil, fmt.Errorf("SEND_DELAY must not be negative")
	}
	if cfg.MaxUploadMB <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	return &cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MaxUploadBytes returns the multipart upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
