// Package config provides environment-variable-first configuration loading
// with optional YAML file and .env fallback for the mail dispatcher.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in the provider setting.
const (
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderGraph    = "graph"
	ProviderStdout   = "stdout"
)

// Config holds the complete application configuration.
type Config struct {
	Upstream UpstreamConfig `yaml:"upstream"`
	Provider string         `yaml:"provider"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	SES      SESConfig      `yaml:"ses"`
	Graph    GraphConfig    `yaml:"graph"`
	Calendar CalendarConfig `yaml:"calendar"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// UpstreamConfig holds the GraphQL backend settings.
type UpstreamConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SendGridConfig holds SendGrid API settings.
type SendGridConfig struct {
	APIKey  string        `yaml:"api_key"`
	Host    string        `yaml:"host"`
	Timeout time.Duration `yaml:"timeout"`
}

// SESConfig holds AWS SES configuration.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Sender          string `yaml:"sender"`
}

// GraphConfig holds Microsoft Graph API configuration.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Sender       string `yaml:"sender"`
}

// CalendarConfig controls where invitation files are written.
type CalendarConfig struct {
	Dir string `yaml:"dir"`
	URL string `yaml:"url"`
}

// DispatchConfig holds the polling settings.
type DispatchConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig holds the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer,
// then overrides with environment variables. Returns an error if the
// specified file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	// Environment variables always override YAML values
	if err := cfg.applyEnvVars(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment. Variables already set are left untouched. A missing file is
// not an error when optional is true. An empty path is a no-op.
func LoadEnvFile(path string, optional bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// SendGridConfigured returns true if a SendGrid API key is set.
func (c *Config) SendGridConfigured() bool {
	return c.SendGrid.APIKey != ""
}

// GraphConfigured returns true if all four Graph API credentials are set.
func (c *Config) GraphConfigured() bool {
	return c.Graph.TenantID != "" &&
		c.Graph.ClientID != "" &&
		c.Graph.ClientSecret != "" &&
		c.Graph.Sender != ""
}

// SESConfigured returns true if the SES region and sender are set.
// Static credentials are optional; the default AWS chain is used otherwise.
func (c *Config) SESConfigured() bool {
	return c.SES.Region != "" && c.SES.Sender != ""
}

// ResolvedProvider returns the provider to use. An explicit setting wins;
// otherwise SendGrid, Graph and SES are tried in that order before falling
// back to stdout.
func (c *Config) ResolvedProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	switch {
	case c.SendGridConfigured():
		return ProviderSendGrid
	case c.GraphConfigured():
		return ProviderGraph
	case c.SESConfigured():
		return ProviderSES
	default:
		return ProviderStdout
	}
}

// Validate reports settings that would prevent the dispatcher from running.
func (c *Config) Validate() error {
	var errs []error

	if c.Upstream.Endpoint == "" {
		errs = append(errs, errors.New("upstream endpoint is required"))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream timeout must be positive, got %s", c.Upstream.Timeout))
	}
	if c.SendGrid.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("sendgrid timeout must be positive, got %s", c.SendGrid.Timeout))
	}
	if c.Dispatch.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %s", c.Dispatch.Interval))
	}
	if c.Calendar.Dir == "" {
		errs = append(errs, errors.New("calendar directory is required"))
	}

	switch c.ResolvedProvider() {
	case ProviderSendGrid:
		if !c.SendGridConfigured() {
			errs = append(errs, errors.New("sendgrid provider selected but SENDGRID_API_KEY is required"))
		}
	case ProviderSES:
		if !c.SESConfigured() {
			errs = append(errs, errors.New("ses provider selected but SES_REGION and SES_SENDER are required"))
		}
	case ProviderGraph:
		if !c.GraphConfigured() {
			errs = append(errs, errors.New("graph provider selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID, GRAPH_CLIENT_SECRET and GRAPH_SENDER are required"))
		}
	case ProviderStdout:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider))
	}

	return errors.Join(errs...)
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Upstream.Endpoint = "http://localhost:8088/graphql"
	c.Upstream.Timeout = 30 * time.Second
	c.SendGrid.Host = "https://api.sendgrid.com"
	c.SendGrid.Timeout = 30 * time.Second
	c.Calendar.Dir = "./events"
	c.Calendar.URL = "https://krscode.com"
	c.Dispatch.Interval = time.Minute
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() error {
	setString(&c.Upstream.Endpoint, "GRAPHQL_URL")
	if err := setDuration(&c.Upstream.Timeout, "GRAPHQL_TIMEOUT"); err != nil {
		return err
	}

	if v := os.Getenv("PROVIDER"); v != "" {
		c.Provider = strings.ToLower(v)
	}

	setString(&c.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&c.SendGrid.Host, "SENDGRID_URL")
	if err := setDuration(&c.SendGrid.Timeout, "SENDGRID_TIMEOUT"); err != nil {
		return err
	}

	setString(&c.SES.Region, "SES_REGION")
	setString(&c.SES.AccessKeyID, "SES_ACCESS_KEY_ID")
	setString(&c.SES.SecretAccessKey, "SES_SECRET_ACCESS_KEY")
	setString(&c.SES.Sender, "SES_SENDER")

	setString(&c.Graph.TenantID, "GRAPH_TENANT_ID")
	setString(&c.Graph.ClientID, "GRAPH_CLIENT_ID")
	setString(&c.Graph.ClientSecret, "GRAPH_CLIENT_SECRET")
	setString(&c.Graph.Sender, "GRAPH_SENDER")

	setString(&c.Calendar.Dir, "EVENT_DIR")
	setString(&c.Calendar.URL, "EVENT_URL")

	if err := setDuration(&c.Dispatch.Interval, "POLL_INTERVAL"); err != nil {
		return err
	}

	setString(&c.Metrics.Listen, "METRICS_LISTEN")

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
