// Package config loads service configuration from a YAML file, with
// environment variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can use the human-readable
// forms time.ParseDuration accepts ("90s", "10m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full service configuration.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `yaml:"listen_addr"`

	// BaseURL is the public address of this service, used to build the voice
	// webhook URL handed to the telephony provider.
	BaseURL string `yaml:"base_url"`

	// EscalationDelay is the grace period between an alert and the voice
	// call, if no acknowledgment arrives.
	EscalationDelay Duration `yaml:"escalation_delay"`

	// DefaultCountryCode is prepended to phone numbers lacking a "+" prefix.
	DefaultCountryCode string `yaml:"default_country_code"`

	Redis  Redis  `yaml:"redis"`
	Twilio Twilio `yaml:"twilio"`
}

// Redis holds store connection settings.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Twilio holds telephony credentials. When AccountSID is empty the service
// falls back to a logging notifier, which is useful for local development.
type Twilio struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		ListenAddr:         ":8080",
		BaseURL:            "http://localhost:8080",
		EscalationDelay:    Duration(10 * time.Minute),
		DefaultCountryCode: "+91",
		Redis: Redis{
			Addr: "localhost:6379",
		},
	}
}

// Load reads the configuration file at path, if non-empty, on top of the
// defaults, then applies environment overrides. A missing file with an empty
// path is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Credentials prefer the environment so config files can be committed.
	if v := os.Getenv("TWILIO_ACCOUNT_SID"); v != "" {
		cfg.Twilio.AccountSID = v
	}
	if v := os.Getenv("TWILIO_AUTH_TOKEN"); v != "" {
		cfg.Twilio.AuthToken = v
	}
	if v := os.Getenv("TWILIO_FROM_NUMBER"); v != "" {
		cfg.Twilio.FromNumber = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.EscalationDelay <= 0 {
		return fmt.Errorf("config: escalation_delay must be positive, got %s", time.Duration(c.EscalationDelay))
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("config: base_url is required")
	}
	return nil
}
