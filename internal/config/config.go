// Package config loads and validates the placereminder YAML configuration.
package config

import (
	"bytes"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults applied by validation when a field is omitted.
const (
	DefaultListenAddr    = "127.0.0.1:8787"
	DefaultDriver        = "sqlite3"
	DefaultRadiusMeters  = 100.0
	DefaultExpiration    = 24 * time.Hour
	DefaultSweepSchedule = "*/15 * * * *"
	DefaultWorkers       = 4
)

// Config holds the full application configuration loaded from YAML.
type Config struct {
	// ListenAddr is the host:port the HTTP API binds to.
	ListenAddr string `yaml:"listen_addr"`

	// APIToken, when set, must be presented as a bearer token on every
	// request except /health.
	APIToken string `yaml:"api_token,omitempty"`

	Database DatabaseConfig `yaml:"database"`
	Geofence GeofenceConfig `yaml:"geofence"`

	// Workers bounds the number of concurrent persistence calls.
	Workers int `yaml:"workers"`

	// HomeAssistant configures push delivery through the HA companion app.
	// Omit the block to disable it.
	HomeAssistant *HomeAssistantConfig `yaml:"home_assistant,omitempty"`

	// Telegram configures push delivery through a Telegram bot.
	// Omit the block to disable it.
	Telegram *TelegramConfig `yaml:"telegram,omitempty"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// DatabaseConfig selects the SQLite driver and file.
type DatabaseConfig struct {
	// Driver is "sqlite3" (cgo, default) or "sqlite" (pure Go).
	Driver string `yaml:"driver"`

	// Path of the database file. Empty means the platform default.
	Path string `yaml:"path,omitempty"`
}

// GeofenceConfig holds defaults for geofences created on save.
type GeofenceConfig struct {
	RadiusMeters float64 `yaml:"radius_meters"`

	// Expiration is how long a registration stays active, e.g. "24h".
	Expiration time.Duration `yaml:"expiration"`

	// NeverExpire keeps registrations until they are removed. Overrides Expiration.
	NeverExpire bool `yaml:"never_expire,omitempty"`

	// SweepSchedule is a standard five-field cron expression.
	SweepSchedule string `yaml:"sweep_schedule"`
}

// HomeAssistantConfig holds the HA connection used for push notifications.
type HomeAssistantConfig struct {
	// URL is the base URL of the Home Assistant instance (e.g. "http://homeassistant.local:8123").
	URL string `yaml:"url"`

	// Token is a long-lived access token.
	Token string `yaml:"token"`

	// NotifyService is the notify service to call, e.g. "mobile_app_pixel_8".
	NotifyService string `yaml:"notify_service"`
}

// TelegramConfig holds the bot token and destination chat.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "placereminder".
	ServiceName string `yaml:"service_name"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request, e.g.:
	//   Authorization: "Bearer <token>"
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/placereminder/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "placereminder", "config.yaml"), nil
}

// Default returns a configuration with every default applied and no
// notifiers configured.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.validate()
	return cfg
}

// Load reads and validates the configuration file at the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Write validates cfg and stores it at path with owner-only permissions,
// creating parent directories as needed.
func (c *Config) Write(path string) error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// validate checks that all fields are well-formed and fills in defaults.
func (c *Config) validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listen_addr %q must be host:port", c.ListenAddr)
	}

	switch c.Database.Driver {
	case "":
		c.Database.Driver = DefaultDriver
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("database.driver %q must be \"sqlite3\" or \"sqlite\"", c.Database.Driver)
	}

	if c.Geofence.RadiusMeters == 0 {
		c.Geofence.RadiusMeters = DefaultRadiusMeters
	}
	if c.Geofence.RadiusMeters < 0 {
		return fmt.Errorf("geofence.radius_meters %v must be positive", c.Geofence.RadiusMeters)
	}
	if c.Geofence.Expiration == 0 {
		c.Geofence.Expiration = DefaultExpiration
	}
	if c.Geofence.Expiration < time.Minute {
		return fmt.Errorf("geofence.expiration %v is too short (minimum 1m)", c.Geofence.Expiration)
	}
	if c.Geofence.SweepSchedule == "" {
		c.Geofence.SweepSchedule = DefaultSweepSchedule
	}
	if _, err := cron.ParseStandard(c.Geofence.SweepSchedule); err != nil {
		return fmt.Errorf("geofence.sweep_schedule %q: %w", c.Geofence.SweepSchedule, err)
	}

	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must be positive", c.Workers)
	}

	if ha := c.HomeAssistant; ha != nil {
		if ha.URL == "" {
			return fmt.Errorf("home_assistant.url is required")
		}
		u, err := url.ParseRequestURI(ha.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("home_assistant.url %q must be a valid http or https URL", ha.URL)
		}
		if ha.Token == "" {
			return fmt.Errorf("home_assistant.token is required")
		}
		if ha.NotifyService == "" {
			return fmt.Errorf("home_assistant.notify_service is required")
		}
	}

	if tg := c.Telegram; tg != nil {
		if tg.Token == "" {
			return fmt.Errorf("telegram.token is required")
		}
		if tg.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required")
		}
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}
