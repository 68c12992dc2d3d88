package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/trainingpulse/trainingpulse/pkg/rules"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval = 5 * time.Minute
	DefaultBufferSize   = 100
	DefaultFormat       = FormatCSV
	DefaultAPIKeyHeader = "X-API-Key"
)

// Dataset file formats.
const (
	FormatCSV       = "csv"
	FormatCSVQuoted = "csv-quoted"
	FormatXLSX      = "xlsx"
)

// Config is the top-level agent configuration.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// Workspace identifies this agent's datasets on the server (e.g. a plant or
	// business unit). Reports are stored per workspace.
	Workspace string `yaml:"workspace" validate:"required"`

	// ServerEndpoint is the base URL of trainingpulse-server. When empty the
	// agent computes and logs reports without shipping them.
	ServerEndpoint string `yaml:"server_endpoint" validate:"omitempty,url"`

	// PollInterval controls how often HTTP dataset sources are re-fetched.
	// File sources are watched and reloaded on change.
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`

	// BufferSize is the maximum number of reports held in memory when
	// the server is unreachable.
	BufferSize int `yaml:"buffer_size" validate:"gt=0"`

	// ServerAuth configures how the agent authenticates to trainingpulse-server.
	ServerAuth AuthConfig `yaml:"server_auth"`

	// Datasets names where the two input tables come from.
	Datasets DatasetsConfig `yaml:"datasets"`

	// Compute tunes the KPI engine.
	Compute ComputeConfig `yaml:"compute"`

	// Thresholds overrides entries of the default traffic-light table.
	Thresholds []rules.Threshold `yaml:"thresholds"`

	// Alerts replaces the default alert rules when non-empty.
	Alerts []rules.AlertRule `yaml:"alerts"`
}

// DatasetsConfig holds the two dataset slots.
type DatasetsConfig struct {
	Participations Source `yaml:"participations"`
	Plan           Source `yaml:"plan"`
}

// Source describes where one dataset is read from. Exactly one of Path and
// URL is set.
type Source struct {
	// Path is a local file. It is watched for changes.
	Path string `yaml:"path" validate:"required_without=URL,excluded_with=URL"`

	// URL is an http(s) location polled every poll_interval.
	URL string `yaml:"url" validate:"omitempty,url"`

	// Format is csv (default, plain comma split), csv-quoted or xlsx.
	Format string `yaml:"format" validate:"omitempty,oneof=csv csv-quoted xlsx"`

	// Sheet selects the worksheet for xlsx sources; empty means the first one.
	Sheet string `yaml:"sheet"`

	// Auth configures how the agent authenticates to a URL source.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options for a URL source.
	TLS TLSConfig `yaml:"tls"`
}

// Location returns the path or URL, whichever is set.
func (s Source) Location() string {
	if s.Path != "" {
		return s.Path
	}
	return s.URL
}

// EffectiveFormat returns Format or the csv default.
func (s Source) EffectiveFormat() string {
	if s.Format == "" {
		return DefaultFormat
	}
	return s.Format
}

// ComputeConfig tunes the KPI engine.
type ComputeConfig struct {
	// ExcludeInvertedDates drops negative day counts (close before start,
	// start after today) from the lead-time and WIP-age aggregates.
	ExcludeInvertedDates bool `yaml:"exclude_inverted_dates"`

	// Board includes the per-status card grouping in shipped reports.
	Board bool `yaml:"board"`
}

// AuthConfig specifies the authentication mode for a source or the server.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode" validate:"omitempty,oneof=mtls apikey bearer basic none"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header the API key is sent in (Mode == "apikey").
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv names the environment variable holding a bearer token.
	TokenEnv string `yaml:"token_env"`

	// Username and PasswordEnv are used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// EffectiveHeader returns the configured API key header or X-API-Key.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAPIKeyHeader
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			PollInterval: DefaultPollInterval,
			BufferSize:   DefaultBufferSize,
		},
	}
}

var structValidator = validator.New()

// validate checks required fields, enums and the rule tables.
func validate(cfg *Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return err
	}
	for name, src := range map[string]Source{
		"participations": cfg.Agent.Datasets.Participations,
		"plan":           cfg.Agent.Datasets.Plan,
	} {
		if src.URL == "" {
			continue
		}
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("datasets.%s.url %q: want http or https", name, src.URL)
		}
	}
	for i, th := range cfg.Agent.Thresholds {
		if err := th.Validate(); err != nil {
			return fmt.Errorf("thresholds[%d]: %w", i, err)
		}
	}
	for i, r := range cfg.Agent.Alerts {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("alerts[%d]: %w", i, err)
		}
	}
	return nil
}
