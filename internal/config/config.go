// Package config loads the orchestration service configuration from a YAML
// file with environment-variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nimbusward/tokengate/internal/errors"
)

// Config is the root configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Custody CustodyConfig `yaml:"custody"`
	Cardano CardanoConfig `yaml:"cardano"`
	Rewards RewardsConfig `yaml:"rewards"`
	Pool    PoolConfig    `yaml:"pool"`
	Redis   RedisConfig   `yaml:"redis"`
	Audit   AuditConfig   `yaml:"audit"`
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Name       string `yaml:"name"`
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
}

// CustodyConfig holds custody-service credentials and signing settings.
type CustodyConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	APISecretPath  string        `yaml:"api_secret_path"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	SigningTimeout time.Duration `yaml:"signing_timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	RateBurst      int           `yaml:"rate_burst"`
}

// CardanoConfig holds on-chain data provider and codec settings.
type CardanoConfig struct {
	ProviderURL      string `yaml:"provider_url"`
	ProviderKey      string `yaml:"provider_key"`
	SubmitURL        string `yaml:"submit_url"`
	TokenPolicyID    string `yaml:"token_policy_id"`
	TokenNameHex     string `yaml:"token_name_hex"`
	RecipientMinimum string `yaml:"recipient_minimum"`
	ChangeMinimum    string `yaml:"change_minimum"`
}

// RewardsConfig holds the thin data-retrieval API endpoints.
type RewardsConfig struct {
	ClaimsURL     string `yaml:"claims_url"`
	RedemptionURL string `yaml:"redemption_url"`
	ScavengerURL  string `yaml:"scavenger_url"`
	APIKey        string `yaml:"api_key"`
}

// PoolConfig holds resource-pool sizing.
type PoolConfig struct {
	Capacity      int           `yaml:"capacity"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepSchedule string        `yaml:"sweep_schedule"`
}

// RedisConfig holds the optional address-cache settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// AuditConfig holds the on-disk audit trail settings.
type AuditConfig struct {
	Dir string `yaml:"dir"`
}

// Load reads configuration from path and applies environment overrides and
// defaults. Missing custody credentials are a fatal configuration error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:       "tokengate",
			ListenAddr: ":8080",
			LogLevel:   "info",
			LogFormat:  "json",
		},
		Custody: CustodyConfig{
			PollInterval:   time.Second,
			SigningTimeout: 15 * time.Minute,
			RatePerSecond:  10,
			RateBurst:      20,
		},
		Cardano: CardanoConfig{
			RecipientMinimum: "1200000",
			ChangeMinimum:    "1200000",
		},
		Pool: PoolConfig{
			Capacity:      32,
			IdleTimeout:   10 * time.Minute,
			SweepSchedule: "@every 1m",
		},
		Redis: RedisConfig{
			TTL: time.Hour,
		},
		Audit: AuditConfig{
			Dir: "audit",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CUSTODY_API_KEY"); v != "" {
		cfg.Custody.APIKey = v
	}
	if v := os.Getenv("CUSTODY_API_SECRET_PATH"); v != "" {
		cfg.Custody.APISecretPath = v
	}
	if v := os.Getenv("CUSTODY_BASE_URL"); v != "" {
		cfg.Custody.BaseURL = v
	}
	if v := os.Getenv("CARDANO_PROVIDER_KEY"); v != "" {
		cfg.Cardano.ProviderKey = v
	}
	if v := os.Getenv("REWARDS_API_KEY"); v != "" {
		cfg.Rewards.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Service.LogLevel = v
	}
}

// Validate checks required fields. Credentials are checked before any
// operation runs so misconfiguration fails fast.
func (c *Config) Validate() error {
	if c.Custody.BaseURL == "" {
		return errors.NewConfigError("custody.base_url", "required")
	}
	if c.Custody.APIKey == "" {
		return errors.NewConfigError("custody.api_key", "required (set CUSTODY_API_KEY)")
	}
	if c.Cardano.ProviderURL == "" {
		return errors.NewConfigError("cardano.provider_url", "required")
	}
	if c.Cardano.TokenPolicyID == "" {
		return errors.NewConfigError("cardano.token_policy_id", "required")
	}
	if c.Pool.Capacity <= 0 {
		return errors.NewConfigError("pool.capacity", "must be positive")
	}
	if c.Pool.IdleTimeout <= 0 {
		return errors.NewConfigError("pool.idle_timeout", "must be positive")
	}
	if c.Custody.PollInterval <= 0 {
		return errors.NewConfigError("custody.poll_interval", "must be positive")
	}
	return nil
}
