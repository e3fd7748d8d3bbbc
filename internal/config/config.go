// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8000"`
	Environment string `env:"ENV" envDefault:"development"`

	// DatabaseURL selects the Postgres store; empty keeps everything
	// in memory.
	DatabaseURL string `env:"DATABASE_URL"`

	OracleURL     string        `env:"ORACLE_URL"`
	OracleTimeout time.Duration `env:"ORACLE_TIMEOUT" envDefault:"10s"`
	OracleRetries int           `env:"ORACLE_RETRIES" envDefault:"1"`

	RuleCatalogPath    string        `env:"RULE_CATALOG_PATH" envDefault:"configs/rule_catalog.yaml"`
	RuleReloadInterval time.Duration `env:"RULE_RELOAD_INTERVAL" envDefault:"30s"`

	ClarificationLimit int `env:"CLARIFICATION_LIMIT" envDefault:"3"`

	TwilioAccountSID  string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken   string `env:"TWILIO_AUTH_TOKEN"`
	TwilioPhoneNumber string `env:"TWILIO_PHONE_NUMBER"`
	OperatorPhone     string `env:"OPERATOR_PHONE"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"ORACLE_URL":        c.OracleURL,
		"RULE_CATALOG_PATH": c.RuleCatalogPath,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("missing required environment variable: %s", name)
		}
	}

	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive, got %s", c.OracleTimeout)
	}
	if c.RuleReloadInterval <= 0 {
		return fmt.Errorf("RULE_RELOAD_INTERVAL must be positive, got %s", c.RuleReloadInterval)
	}
	return nil
}

// SMSConfigured reports whether every Twilio knob is set.
func (c *Config) SMSConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" &&
		c.TwilioPhoneNumber != "" && c.OperatorPhone != ""
}
