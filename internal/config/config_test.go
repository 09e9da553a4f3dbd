package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nimbusward/tokengate/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
custody:
  base_url: https://custody.example
  api_key: key-from-file
cardano:
  provider_url: https://chain.example
  token_policy_id: policy00
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Service.Name != "tokengate" || cfg.Service.ListenAddr != ":8080" {
		t.Fatalf("service defaults: %+v", cfg.Service)
	}
	if cfg.Custody.PollInterval != time.Second {
		t.Fatalf("poll interval default: %v", cfg.Custody.PollInterval)
	}
	if cfg.Custody.SigningTimeout != 15*time.Minute {
		t.Fatalf("signing timeout default: %v", cfg.Custody.SigningTimeout)
	}
	if cfg.Pool.Capacity != 32 || cfg.Pool.IdleTimeout != 10*time.Minute {
		t.Fatalf("pool defaults: %+v", cfg.Pool)
	}
	if cfg.Cardano.RecipientMinimum != "1200000" || cfg.Cardano.ChangeMinimum != "1200000" {
		t.Fatalf("minimum defaults: %+v", cfg.Cardano)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
pool:
  capacity: 8
  idle_timeout: 2m
service:
  listen_addr: ":9090"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pool.Capacity != 8 {
		t.Fatalf("capacity = %d", cfg.Pool.Capacity)
	}
	if cfg.Pool.IdleTimeout != 2*time.Minute {
		t.Fatalf("idle timeout = %v", cfg.Pool.IdleTimeout)
	}
	if cfg.Service.ListenAddr != ":9090" {
		t.Fatalf("listen addr = %q", cfg.Service.ListenAddr)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CUSTODY_API_KEY", "key-from-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Custody.APIKey != "key-from-env" {
		t.Fatalf("api key = %q, want env override", cfg.Custody.APIKey)
	}
	if cfg.Service.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.Service.LogLevel)
	}
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			"missing custody base url",
			"custody:\n  api_key: k\ncardano:\n  provider_url: u\n  token_policy_id: p\n",
			"custody.base_url",
		},
		{
			"missing custody api key",
			"custody:\n  base_url: u\ncardano:\n  provider_url: u\n  token_policy_id: p\n",
			"custody.api_key",
		},
		{
			"missing provider url",
			"custody:\n  base_url: u\n  api_key: k\ncardano:\n  token_policy_id: p\n",
			"cardano.provider_url",
		},
		{
			"missing token policy",
			"custody:\n  base_url: u\n  api_key: k\ncardano:\n  provider_url: u\n",
			"cardano.token_policy_id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CUSTODY_API_KEY", "")
			t.Setenv("CUSTODY_BASE_URL", "")
			_, err := Load(writeConfig(t, tt.body))
			var cfgErr *errors.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestValidateRejectsNonPositivePool(t *testing.T) {
	cfg := Default()
	cfg.Custody.BaseURL = "u"
	cfg.Custody.APIKey = "k"
	cfg.Cardano.ProviderURL = "u"
	cfg.Cardano.TokenPolicyID = "p"
	cfg.Pool.Capacity = 0

	err := cfg.Validate()
	var cfgErr *errors.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "pool.capacity" {
		t.Fatalf("expected pool.capacity error, got %v", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
