package adsession

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// ADSESSION_API_BASE_URL or ADSESSION_LOCKOUT_THRESHOLD.
const EnvPrefix = "ADSESSION"

// LoadConfig reads the optional YAML file at path, applies environment
// overrides on top and validates the result. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return DecodeConfig(v)
}

// NewViper returns a viper instance preloaded with every default and bound
// to the environment. The CLI binds its flags onto it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// DecodeConfig unmarshals v into a Config and validates it.
func DecodeConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.user_agent", d.API.UserAgent)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.key_prefix", d.Storage.KeyPrefix)
	v.SetDefault("storage.file_path", d.Storage.FilePath)
	v.SetDefault("storage.redis_addr", d.Storage.RedisAddr)
	v.SetDefault("storage.redis_db", d.Storage.RedisDB)
	v.SetDefault("storage.redis_prefix", d.Storage.RedisPrefix)
	v.SetDefault("storage.redis_ttl", d.Storage.RedisTTL)

	v.SetDefault("session.refresh_margin", d.Session.RefreshMargin)
	v.SetDefault("session.integrity_interval", d.Session.IntegrityInterval)
	v.SetDefault("session.hydrate_on_build", d.Session.HydrateOnBuild)

	v.SetDefault("lockout.enabled", d.Lockout.Enabled)
	v.SetDefault("lockout.threshold", d.Lockout.Threshold)
	v.SetDefault("lockout.duration", d.Lockout.Duration)

	v.SetDefault("device.enabled", d.Device.Enabled)

	v.SetDefault("audit.forward", d.Audit.Forward)
	v.SetDefault("audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", d.Audit.DropIfFull)
	v.SetDefault("audit.post_timeout", d.Audit.PostTimeout)

	v.SetDefault("offline.enabled", d.Offline.Enabled)
	v.SetDefault("offline.session_ttl", d.Offline.SessionTTL)

	v.SetDefault("routes.login_path", d.Routes.LoginPath)
	v.SetDefault("routes.forbidden_path", d.Routes.ForbiddenPath)
	v.SetDefault("routes.return_param", d.Routes.ReturnParam)
	v.SetDefault("routes.enforce_route_prefixes", d.Routes.EnforceRoutePrefixes)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.enable_latency_histograms", d.Metrics.EnableLatencyHistograms)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
