package adsession

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/innoad/adsession/clock"
	"github.com/innoad/adsession/internal/fingerprint"
	"github.com/innoad/adsession/permission"
	"github.com/innoad/adsession/transport"
	"github.com/innoad/adsession/vault"
)

// AuthClient is the network side of the session lifecycle. Login and
// Refresh return the raw response body; the Manager normalizes it.
// *transport.HTTPClient implements it.
type AuthClient interface {
	Login(ctx context.Context, req transport.LoginRequest) ([]byte, error)
	Refresh(ctx context.Context, refreshToken string) ([]byte, error)
	Logout(ctx context.Context, accessToken string) error
	PostSecurityEvent(ctx context.Context, accessToken string, event any) error
}

// Builder assembles a Manager. It is single-use.
type Builder struct {
	config Config

	client     AuthClient
	persistent vault.Scope
	ephemeral  vault.Scope
	clock      clock.Clock
	logger     *slog.Logger
	sinks      []AuditSink
	env        fingerprint.Provider
	resolver   *permission.Resolver

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithClient overrides the HTTP client built from Config.API.
func (b *Builder) WithClient(c AuthClient) *Builder {
	b.client = c
	return b
}

// WithPersistentScope overrides the scope selected by Config.Storage.
func (b *Builder) WithPersistentScope(s vault.Scope) *Builder {
	b.persistent = s
	return b
}

func (b *Builder) WithEphemeralScope(s vault.Scope) *Builder {
	b.ephemeral = s
	return b
}

func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink adds a sink that receives every audit event. It may be
// called more than once.
func (b *Builder) WithAuditSink(s AuditSink) *Builder {
	if s != nil {
		b.sinks = append(b.sinks, s)
	}
	return b
}

// WithEnvironment sets the source of device fingerprint signals.
func (b *Builder) WithEnvironment(p fingerprint.Provider) *Builder {
	b.env = p
	return b
}

func (b *Builder) WithResolver(r *permission.Resolver) *Builder {
	b.resolver = r
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build is BuildContext with a background context.
func (b *Builder) Build() (*Manager, error) {
	return b.BuildContext(context.Background())
}

// BuildContext validates the configuration, wires every component and,
// when Session.HydrateOnBuild is set, restores a stored session.
func (b *Builder) BuildContext(ctx context.Context) (*Manager, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	b.built = true

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deps := managerDeps{
		client:     b.client,
		persistent: b.persistent,
		ephemeral:  b.ephemeral,
		clock:      b.clock,
		logger:     b.logger,
		sinks:      b.sinks,
		env:        b.env,
		resolver:   b.resolver,
	}

	if deps.client == nil {
		if cfg.API.BaseURL == "" {
			return nil, fmt.Errorf("%w: api.base_url is required when no client is supplied", ErrInvalidConfig)
		}
		hc, err := transport.New(transport.Config{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout,
			UserAgent: cfg.API.UserAgent,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		deps.client = hc
	}

	if deps.persistent == nil {
		scope, closer, err := openPersistentScope(cfg.Storage)
		if err != nil {
			return nil, err
		}
		deps.persistent = scope
		if closer != nil {
			deps.closers = append(deps.closers, closer)
		}
	}
	if deps.ephemeral == nil {
		deps.ephemeral = vault.NewMemoryScope()
	}
	if deps.clock == nil {
		deps.clock = clock.Real()
	}
	if deps.logger == nil {
		deps.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.resolver == nil {
		deps.resolver = permission.Default()
	}
	if deps.env == nil {
		deps.env = fingerprint.System{Agent: cfg.API.UserAgent}
	}

	m, err := newManager(cfg, deps)
	if err != nil {
		deps.close()
		return nil, err
	}

	if err := m.lockout.Restore(ctx); err != nil {
		m.logger.Warn("restore lockout state", "err", err)
	}
	if cfg.Session.HydrateOnBuild {
		if _, err := m.Hydrate(ctx); err != nil {
			m.logger.Warn("hydrate session", "err", err)
		}
	}
	return m, nil
}

func openPersistentScope(cfg StorageConfig) (vault.Scope, io.Closer, error) {
	switch cfg.Backend {
	case StorageFile:
		return vault.NewFileScope(cfg.FilePath), nil, nil
	case StorageRedis:
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{cfg.RedisAddr},
			DB:    cfg.RedisDB,
		})
		return vault.NewRedisScope(rdb, cfg.RedisPrefix, cfg.RedisTTL), rdb, nil
	case StorageMemory, "":
		return vault.NewMemoryScope(), nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, cfg.Backend)
}
