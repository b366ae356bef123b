// Package config loads tasktrack configuration from a JSONC file.
package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config is the root configuration for tasktrack.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Store   StoreConfig   `json:"store"`
	Events  EventsConfig  `json:"events"`
	Client  ClientConfig  `json:"client"`
	Log     LogConfig     `json:"log"`
}

// GatewayConfig holds the Task API server settings.
type GatewayConfig struct {
	Host string     `json:"host"`
	Port int        `json:"port"`
	CORS CORSConfig `json:"cors"`
}

// CORSConfig lists what cross-origin callers may do.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowCredentials *bool    `json:"allow_credentials,omitempty"`
}

// Credentials reports whether credentialed cross-origin requests are allowed (default true).
func (c CORSConfig) Credentials() bool {
	return c.AllowCredentials == nil || *c.AllowCredentials
}

// StoreConfig locates the task database.
type StoreConfig struct {
	Path string `json:"path"` // sqlite file, or ":memory:"
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int    `json:"buffer_size"`
	LogDir     string `json:"log_dir,omitempty"` // JSONL event trail; empty disables
}

// ClientConfig holds settings for the CLI and TUI clients.
type ClientConfig struct {
	URL     string   `json:"url"`               // Task API base URL
	Timeout Duration `json:"timeout,omitempty"` // 0 = wait indefinitely
}

// LogConfig selects the log level ("debug", "info", "warn", "error").
type LogConfig struct {
	Level string `json:"level"`
}

// SlogLevel converts the configured level to a slog.Level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		*d = 0
		return nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
