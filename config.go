package adsession

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/innoad/adsession/internal/offline"
)

// Config holds every tunable of the session manager. Load it with
// LoadConfig or start from DefaultConfig; treat it as immutable once
// passed to Builder.WithConfig.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Session SessionConfig `mapstructure:"session"`
	Lockout LockoutConfig `mapstructure:"lockout"`
	Device  DeviceConfig  `mapstructure:"device"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Offline OfflineConfig `mapstructure:"offline"`
	Routes  RoutesConfig  `mapstructure:"routes"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig points at the platform auth API.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// Storage backends for the persistent scope.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageRedis  = "redis"
)

// StorageConfig selects the persistent scope used when the builder is not
// handed one. The ephemeral scope always lives in process memory.
type StorageConfig struct {
	Backend     string        `mapstructure:"backend"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	FilePath    string        `mapstructure:"file_path"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	RedisDB     int           `mapstructure:"redis_db"`
	RedisPrefix string        `mapstructure:"redis_prefix"`
	RedisTTL    time.Duration `mapstructure:"redis_ttl"`
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls renewal and the integrity check.
type SessionConfig struct {
	// RefreshMargin is how long before expiry the renewal fires.
	RefreshMargin     time.Duration `mapstructure:"refresh_margin"`
	IntegrityInterval time.Duration `mapstructure:"integrity_interval"`
	// HydrateOnBuild restores a stored, unexpired session during Build.
	HydrateOnBuild bool `mapstructure:"hydrate_on_build"`
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls the client-side failed-login lockout.
type LockoutConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Threshold int           `mapstructure:"threshold"`
	Duration  time.Duration `mapstructure:"duration"`
}

// DeviceConfig toggles device fingerprint tracking.
type DeviceConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AuditConfig controls remote forwarding of audit events. Local
// subscribers always receive every event.
type AuditConfig struct {
	Forward     bool          `mapstructure:"forward"`
	BufferSize  int           `mapstructure:"buffer_size"`
	DropIfFull  bool          `mapstructure:"drop_if_full"`
	PostTimeout time.Duration `mapstructure:"post_timeout"`
}

/*
====================================
OFFLINE CONFIG
====================================
*/

// OfflineConfig enables the local allow-list fallback.
type OfflineConfig struct {
	Enabled    bool              `mapstructure:"enabled"`
	SessionTTL time.Duration     `mapstructure:"session_ttl"`
	Accounts   []offline.Account `mapstructure:"accounts"`
}

/*
====================================
ROUTES CONFIG
====================================
*/

// RoutesConfig feeds the routing guard.
type RoutesConfig struct {
	LoginPath            string `mapstructure:"login_path"`
	ForbiddenPath        string `mapstructure:"forbidden_path"`
	ReturnParam          string `mapstructure:"return_param"`
	EnforceRoutePrefixes bool   `mapstructure:"enforce_route_prefixes"`
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

// LogConfig is read by the CLI to build its slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. API.BaseURL is left empty
// and must be set.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:   15 * time.Second,
			UserAgent: "adsession",
		},
		Storage: StorageConfig{
			Backend:     StorageMemory,
			KeyPrefix:   "innoad_",
			RedisPrefix: "adsession:",
		},
		Session: SessionConfig{
			RefreshMargin:     60 * time.Second,
			IntegrityInterval: 60 * time.Second,
			HydrateOnBuild:    true,
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Duration:  15 * time.Minute,
		},
		Device: DeviceConfig{
			Enabled: true,
		},
		Audit: AuditConfig{
			Forward:     true,
			BufferSize:  64,
			DropIfFull:  true,
			PostTimeout: 5 * time.Second,
		},
		Offline: OfflineConfig{
			Enabled:    false,
			SessionTTL: 8 * time.Hour,
		},
		Routes: RoutesConfig{
			LoginPath:     "/autenticacion/iniciar-sesion",
			ForbiddenPath: "/sin-permisos",
			ReturnParam:   "returnUrl",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Offline.Accounts = append([]offline.Account(nil), cfg.Offline.Accounts...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.API.BaseURL != "" {
		u, err := url.Parse(c.API.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("api.base_url must be an absolute http(s) URL")
		}
	}
	if c.API.Timeout < 0 {
		return invalid("api.timeout must be >= 0")
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StorageFile:
		if c.Storage.FilePath == "" {
			return invalid("storage.file_path is required for the file backend")
		}
	case StorageRedis:
		if c.Storage.RedisAddr == "" {
			return invalid("storage.redis_addr is required for the redis backend")
		}
		if c.Storage.RedisTTL < 0 {
			return invalid("storage.redis_ttl must be >= 0")
		}
	default:
		return invalid(fmt.Sprintf("storage.backend %q is not one of memory, file, redis", c.Storage.Backend))
	}
	if strings.TrimSpace(c.Storage.KeyPrefix) == "" {
		return invalid("storage.key_prefix must not be empty")
	}

	if c.Session.RefreshMargin < 0 {
		return invalid("session.refresh_margin must be >= 0")
	}
	if c.Session.IntegrityInterval <= 0 {
		return invalid("session.integrity_interval must be > 0")
	}

	if c.Lockout.Enabled {
		if c.Lockout.Threshold < 1 {
			return invalid("lockout.threshold must be >= 1")
		}
		if c.Lockout.Duration <= 0 {
			return invalid("lockout.duration must be > 0")
		}
	}

	if c.Audit.Forward && c.Audit.BufferSize <= 0 {
		return invalid("audit.buffer_size must be > 0 when forwarding")
	}
	if c.Audit.PostTimeout < 0 {
		return invalid("audit.post_timeout must be >= 0")
	}

	if c.Offline.Enabled {
		if len(c.Offline.Accounts) == 0 {
			return invalid("offline.accounts must not be empty when offline mode is enabled")
		}
		if c.Offline.SessionTTL <= 0 {
			return invalid("offline.session_ttl must be > 0")
		}
		for i, a := range c.Offline.Accounts {
			if a.Username == "" && a.Email == "" {
				return invalid(fmt.Sprintf("offline.accounts[%d] needs a username or email", i))
			}
			if a.PasswordHash == "" {
				return invalid(fmt.Sprintf("offline.accounts[%d].password_hash is required", i))
			}
		}
	}

	if !strings.HasPrefix(c.Routes.LoginPath, "/") || !strings.HasPrefix(c.Routes.ForbiddenPath, "/") {
		return invalid("routes.login_path and routes.forbidden_path must be absolute paths")
	}
	if c.Routes.ReturnParam == "" {
		return invalid("routes.return_param must not be empty")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return invalid(fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
