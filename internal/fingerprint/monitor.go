package fingerprint

import (
	"context"
	"log/slog"
	"sync"

	"github.com/innoad/adsession/vault"
)

// Monitor compares the current fingerprint with the last recorded one.
type Monitor struct {
	provider Provider
	store    vault.Scope
	key      string
	logger   *slog.Logger
	onChange func(ctx context.Context, previous, current string)

	mu sync.Mutex
}

// NewMonitor creates a Monitor persisting to store under key. onChange is
// called when the fingerprint differs while a session is authenticated,
// before the new value is stored.
func NewMonitor(p Provider, store vault.Scope, key string, logger *slog.Logger, onChange func(ctx context.Context, previous, current string)) *Monitor {
	if p == nil {
		p = System{}
	}
	if store == nil {
		store = vault.NewMemoryScope()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{provider: p, store: store, key: key, logger: logger, onChange: onChange}
}

// Current returns the fingerprint of the environment right now.
func (m *Monitor) Current() string {
	return Compute(m.provider.Environment())
}

// CheckAndRecord stores the current fingerprint and reports whether it
// differs from the stored one. Storage failures are logged and reported as
// "unchanged"; the check is advisory.
func (m *Monitor) CheckAndRecord(ctx context.Context, authenticated bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.Current()
	previous, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.logger.Warn("read device fingerprint", "err", err)
		return false
	}
	if ok && previous == current {
		return false
	}

	changed := ok && previous != ""
	if changed && authenticated && m.onChange != nil {
		m.onChange(ctx, previous, current)
	}
	if err := m.store.SetMany(ctx, map[string]string{m.key: current}); err != nil {
		m.logger.Warn("store device fingerprint", "err", err)
	}
	return changed
}
