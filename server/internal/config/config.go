package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/trainingpulse/trainingpulse/pkg/rules"
)

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	// Rules replaces the built-in rule list when non-empty.
	Rules    []AlertRule     `yaml:"rules" validate:"dive"`
	Webhooks []WebhookConfig `yaml:"webhooks" validate:"dive"`
}

// AlertRule is a KPI alert rule plus server-side firing policy.
type AlertRule struct {
	rules.AlertRule `yaml:",inline"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown" validate:"gte=0"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type" validate:"oneof=teams slack http"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env" validate:"required"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort          = 8080
	DefaultReportTTL         = 30 * time.Minute
	DefaultBroadcastInterval = 5 * time.Second
	DefaultRetention         = 30 * 24 * time.Hour
	DefaultAPIKeyHeader      = "X-API-Key"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `agent:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, metrics and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port" validate:"min=1,max=65535"`

	// Auth configures how the server authenticates agents and API clients.
	Auth AuthConfig `yaml:"auth"`

	// Report controls in-memory report retention.
	Report ReportConfig `yaml:"report"`

	// BroadcastInterval is how often the WebSocket hub pushes the snapshot.
	BroadcastInterval time.Duration `yaml:"broadcast_interval" validate:"gt=0"`

	// Alerts holds rule definitions and webhook delivery targets.
	Alerts AlertsConfig `yaml:"alerts"`

	// Storage configures the optional report history.
	Storage StorageConfig `yaml:"storage"`
}

// AuthConfig controls client authentication on the server side.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" validate:"omitempty,oneof=apikey none"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env" validate:"required_if=Mode apikey"`

	// Header is the HTTP header to read the key from. Defaults to X-API-Key.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default X-API-Key.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAPIKeyHeader
}

// ReportConfig controls in-memory report retention.
type ReportConfig struct {
	// TTL is how long a workspace's report remains live after its last update.
	// Agents re-ship every poll_interval, so TTL should be a few multiples of it.
	TTL time.Duration `yaml:"ttl" validate:"gt=0"`
}

// StorageConfig configures the SQLite report history. History is disabled
// when Path is empty.
type StorageConfig struct {
	// Backend is "sqlite", the only supported value.
	Backend string `yaml:"backend" validate:"omitempty,oneof=sqlite"`

	// Path is the database file.
	Path string `yaml:"path"`

	// Retention is how long history rows are kept.
	Retention time.Duration `yaml:"retention" validate:"gt=0"`
}

// Enabled reports whether history is configured.
func (s StorageConfig) Enabled() bool { return s.Path != "" }

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			Report:            ReportConfig{TTL: DefaultReportTTL},
			BroadcastInterval: DefaultBroadcastInterval,
			Storage:           StorageConfig{Retention: DefaultRetention},
		},
	}
}

var structValidator = validator.New()

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}
	for i, r := range cfg.Server.Alerts.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("server.alerts.rules[%d]: %w", i, err)
		}
	}
	return nil
}
