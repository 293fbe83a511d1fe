package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort           = 8080
	DefaultStreamInterval     = 5 * time.Second
	DefaultEvaluationInterval = 30 * time.Second
	DefaultBufferSize         = 1000
	DefaultSendTimeout        = 10 * time.Second
	DefaultScrapeInterval     = 15 * time.Second
)

// DefaultRecipientsKey is the recipients entry used for severities that have
// no entry of their own.
const DefaultRecipientsKey = "default"

// Config holds the full configuration parsed from config.yaml.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Notify     NotifyConfig     `yaml:"notify"`
	Scrape     ScrapeConfig     `yaml:"scrape"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates operator API clients.
	Auth AuthConfig `yaml:"auth"`

	// StreamInterval is how often the WebSocket hub pushes alert state.
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// AuthConfig controls client authentication on the operator API.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "X-API-Key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "X-API-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// MonitoringConfig controls metric retention and rule evaluation.
type MonitoringConfig struct {
	// Enabled turns periodic evaluation on. Default: true.
	Enabled bool `yaml:"enabled"`

	// Interval between evaluation ticks. Default: 30s.
	Interval time.Duration `yaml:"interval"`

	// BufferSize is the number of metric samples retained. Default: 1000.
	BufferSize int `yaml:"buffer_size"`

	// DefaultRules registers the built-in rule table. Default: true.
	DefaultRules bool `yaml:"default_rules"`

	// Rules are additional rules; they are re-applied on config reload.
	Rules []RuleConfig `yaml:"rules"`
}

// RuleConfig defines one threshold-based alert rule.
type RuleConfig struct {
	// ID is the unique rule identifier, also the cooldown key.
	ID string `yaml:"id"`

	Name string `yaml:"name"`

	// Condition is a simple expression: "error_rate > 0.05",
	// "p99_response_time > 1500", "backup_status == failed".
	Condition string `yaml:"condition"`

	// Severity is one of: low | medium | high | critical.
	Severity string `yaml:"severity"`

	// Channels is a subset of: email | sms | push | webhook.
	Channels []string `yaml:"channels"`

	// Cooldown suppresses re-fires for this duration after the rule fires.
	Cooldown time.Duration `yaml:"cooldown"`

	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled"`

	// Message is an optional text/template over the triggering snapshot.
	Message string `yaml:"message"`
}

// NotifyConfig holds delivery settings.
type NotifyConfig struct {
	// SendTimeout bounds each channel send. Default: 10s.
	SendTimeout time.Duration `yaml:"send_timeout"`

	// Recipients are keyed by severity (low|medium|high|critical) or "default".
	Recipients map[string]RecipientsConfig `yaml:"recipients"`

	// Email configures the SMTP sender. Email delivery is disabled when Host is empty.
	Email EmailConfig `yaml:"email"`
}

// RecipientsConfig lists the addressees of one severity.
type RecipientsConfig struct {
	Email        []string        `yaml:"email"`
	SMS          []string        `yaml:"sms"`
	PushCategory string          `yaml:"push_category"`
	Webhooks     []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | pagerduty | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	From        string `yaml:"from"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Password returns the SMTP password resolved from the environment.
func (e EmailConfig) Password() string {
	if e.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(e.PasswordEnv)
}

// ScrapeConfig configures the resource gauge scraper.
type ScrapeConfig struct {
	// Interval between scrapes. Default: 15s.
	Interval time.Duration `yaml:"interval"`

	Targets []TargetConfig `yaml:"targets"`
}

// TargetConfig is one Prometheus text endpoint to poll.
type TargetConfig struct {
	ID       string        `yaml:"id"`
	Endpoint string        `yaml:"endpoint"`
	Gauges   []GaugeConfig `yaml:"gauges"`

	// Auth optionally sends an API key with every scrape.
	Auth AuthConfig `yaml:"auth"`
}

// GaugeConfig maps a scraped metric family onto a collector metric.
// The recorded value is sum(Metric) / sum(DivideBy) * Scale; DivideBy is
// optional and Scale defaults to 1.
type GaugeConfig struct {
	Metric   string  `yaml:"metric"`
	DivideBy string  `yaml:"divide_by"`
	Scale    float64 `yaml:"scale"`
	Name     string  `yaml:"name"`
}

// Load reads and parses the config file at path.
// Missing fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			StreamInterval: DefaultStreamInterval,
		},
		Monitoring: MonitoringConfig{
			Enabled:      true,
			Interval:     DefaultEvaluationInterval,
			BufferSize:   DefaultBufferSize,
			DefaultRules: true,
		},
		Notify: NotifyConfig{
			SendTimeout: DefaultSendTimeout,
		},
		Scrape: ScrapeConfig{
			Interval: DefaultScrapeInterval,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
// Rule conditions are checked by the alerts package when rules are built.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.StreamInterval <= 0 {
		return fmt.Errorf("server.stream_interval must be positive")
	}

	m := cfg.Monitoring
	if m.Enabled && m.Interval < time.Second {
		return fmt.Errorf("monitoring.interval %v must be at least 1s", m.Interval)
	}
	if m.BufferSize <= 0 {
		return fmt.Errorf("monitoring.buffer_size must be positive")
	}
	ids := make(map[string]struct{}, len(m.Rules))
	for i, r := range m.Rules {
		if r.ID == "" {
			return fmt.Errorf("monitoring.rules[%d].id is required", i)
		}
		if _, dup := ids[r.ID]; dup {
			return fmt.Errorf("monitoring.rules[%d].id %q is duplicated", i, r.ID)
		}
		ids[r.ID] = struct{}{}
		if r.Cooldown < 0 {
			return fmt.Errorf("monitoring.rules[%d].cooldown must not be negative", i)
		}
	}

	if cfg.Notify.SendTimeout <= 0 {
		return fmt.Errorf("notify.send_timeout must be positive")
	}
	for key, rc := range cfg.Notify.Recipients {
		switch key {
		case DefaultRecipientsKey, "low", "medium", "high", "critical":
		default:
			return fmt.Errorf("notify.recipients key %q unknown: want default|low|medium|high|critical", key)
		}
		for _, wh := range rc.Webhooks {
			switch wh.Type {
			case "slack", "teams", "pagerduty", "http":
			default:
				return fmt.Errorf("notify.recipients.%s webhook type %q unknown: want slack|teams|pagerduty|http", key, wh.Type)
			}
		}
	}
	if e := cfg.Notify.Email; e.Host != "" && (e.Port <= 0 || e.Port > 65535) {
		return fmt.Errorf("notify.email.port %d is out of range [1, 65535]", e.Port)
	}

	if len(cfg.Scrape.Targets) > 0 && cfg.Scrape.Interval <= 0 {
		return fmt.Errorf("scrape.interval must be positive")
	}
	for i, t := range cfg.Scrape.Targets {
		if t.Endpoint == "" {
			return fmt.Errorf("scrape.targets[%d].endpoint is required", i)
		}
		switch t.Auth.Mode {
		case "apikey", "none", "":
		default:
			return fmt.Errorf("scrape.targets[%d].auth.mode %q unknown: want apikey|none", i, t.Auth.Mode)
		}
		for j, g := range t.Gauges {
			if g.Metric == "" || g.Name == "" {
				return fmt.Errorf("scrape.targets[%d].gauges[%d] needs metric and name", i, j)
			}
		}
	}
	return nil
}
