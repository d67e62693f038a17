package adsession

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/innoad/adsession/internal/offline"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Session.RefreshMargin != 60*time.Second || cfg.Lockout.Threshold != 5 || cfg.Lockout.Duration != 15*time.Minute {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Session, cfg.Lockout)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "https base url",
			mutate:    func(c *Config) { c.API.BaseURL = "https://api.innoad.test/api" },
			wantValid: true,
		},
		{
			name:      "relative base url",
			mutate:    func(c *Config) { c.API.BaseURL = "/api" },
			wantValid: false,
		},
		{
			name:      "unknown backend",
			mutate:    func(c *Config) { c.Storage.Backend = "etcd" },
			wantValid: false,
		},
		{
			name:      "file backend without path",
			mutate:    func(c *Config) { c.Storage.Backend = StorageFile },
			wantValid: false,
		},
		{
			name: "redis backend with addr",
			mutate: func(c *Config) {
				c.Storage.Backend = StorageRedis
				c.Storage.RedisAddr = "localhost:6379"
			},
			wantValid: true,
		},
		{
			name:      "blank key prefix",
			mutate:    func(c *Config) { c.Storage.KeyPrefix = "  " },
			wantValid: false,
		},
		{
			name:      "zero integrity interval",
			mutate:    func(c *Config) { c.Session.IntegrityInterval = 0 },
			wantValid: false,
		},
		{
			name:      "zero lockout threshold",
			mutate:    func(c *Config) { c.Lockout.Threshold = 0 },
			wantValid: false,
		},
		{
			name: "zero threshold with lockout off",
			mutate: func(c *Config) {
				c.Lockout.Enabled = false
				c.Lockout.Threshold = 0
			},
			wantValid: true,
		},
		{
			name:      "offline without accounts",
			mutate:    func(c *Config) { c.Offline.Enabled = true },
			wantValid: false,
		},
		{
			name: "offline account without hash",
			mutate: func(c *Config) {
				c.Offline.Enabled = true
				c.Offline.Accounts = []offline.Account{{Username: "kiosk"}}
			},
			wantValid: false,
		},
		{
			name:      "relative login path",
			mutate:    func(c *Config) { c.Routes.LoginPath = "login" },
			wantValid: false,
		},
		{
			name:      "json log format",
			mutate:    func(c *Config) { c.Log.Format = "JSON" },
			wantValid: true,
		},
		{
			name:      "logfmt log format",
			mutate:    func(c *Config) { c.Log.Format = "logfmt" },
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("expected ErrInvalidConfig, got %v", err)
				}
			}
		})
	}
}

func TestLoadConfigFromYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adsession.yaml")
	yaml := `
api:
  base_url: https://api.innoad.test/api
  timeout: 20s
storage:
  backend: file
  file_path: /var/lib/adsession/session.json
session:
  refresh_margin: 90s
lockout:
  threshold: 4
offline:
  enabled: true
  session_ttl: 4h
  accounts:
    - id: local-1
      username: kiosk
      role: tecnico
      password_hash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ADSESSION_LOCKOUT_THRESHOLD", "3")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.BaseURL != "https://api.innoad.test/api" || cfg.API.Timeout != 20*time.Second {
		t.Fatalf("unexpected api config %+v", cfg.API)
	}
	if cfg.Storage.Backend != StorageFile || cfg.Session.RefreshMargin != 90*time.Second {
		t.Fatalf("unexpected storage/session config %+v %+v", cfg.Storage, cfg.Session)
	}
	if cfg.Lockout.Threshold != 3 {
		t.Fatalf("env override not applied, threshold=%d", cfg.Lockout.Threshold)
	}
	if cfg.Lockout.Duration != 15*time.Minute || cfg.Routes.ReturnParam != "returnUrl" {
		t.Fatal("defaults must fill keys absent from the file")
	}
	if len(cfg.Offline.Accounts) != 1 || cfg.Offline.Accounts[0].Role != "tecnico" {
		t.Fatalf("offline accounts not decoded: %+v", cfg.Offline.Accounts)
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: etcd\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
