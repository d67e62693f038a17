package limiters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/innoad/adsession/clock"
	"github.com/innoad/adsession/vault"
)

// LockoutConfig holds configuration for the login lockout.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

var (
	// ErrLockoutUnavailable indicates the lockout state could not be persisted or read.
	ErrLockoutUnavailable = errors.New("lockout state unavailable")
)

// LockoutState is a snapshot of the guard.
type LockoutState struct {
	FailedAttempts int       `json:"failed_attempts"`
	LockedUntil    time.Time `json:"locked_until,omitempty"`
}

// Locked reports whether the state blocks logins at now.
func (s LockoutState) Locked(now time.Time) bool {
	return !s.LockedUntil.IsZero() && now.Before(s.LockedUntil)
}

// LockoutGuard enforces the consecutive-failure lockout. It is safe for
// concurrent use.
type LockoutGuard struct {
	config LockoutConfig
	clock  clock.Clock
	store  vault.Scope
	key    string
	logger *slog.Logger

	onChange func(LockoutState)

	mu     sync.Mutex
	state  LockoutState
	unlock *clock.Timer
	gen    uint64
}

// NewLockoutGuard creates a guard. store may be nil for in-memory only
// state; onChange, when set, is called outside the guard's lock after every
// transition.
func NewLockoutGuard(cfg LockoutConfig, clk clock.Clock, store vault.Scope, key string, logger *slog.Logger, onChange func(LockoutState)) *LockoutGuard {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LockoutGuard{
		config:   cfg,
		clock:    clk,
		store:    store,
		key:      key,
		logger:   logger,
		onChange: onChange,
	}
}

// Restore loads persisted state. An active lock gets its unlock re-armed
// for the remaining time; an elapsed one is cleared.
func (g *LockoutGuard) Restore(ctx context.Context) error {
	if g == nil || !g.config.Enabled || g.store == nil {
		return nil
	}

	raw, ok, err := g.store.Get(ctx, g.key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if !ok || raw == "" {
		return nil
	}

	var st LockoutState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		g.logger.Warn("discarding unreadable lockout state", "err", err)
		_ = g.store.Delete(ctx, g.key)
		return nil
	}

	now := g.clock.Now()
	g.mu.Lock()
	switch {
	case st.LockedUntil.IsZero():
		g.state = st
	case st.Locked(now):
		g.state = st
		g.armLocked(st.LockedUntil.Sub(now))
	default:
		g.state = LockoutState{}
		g.persistLocked(ctx)
	}
	snapshot := g.state
	g.mu.Unlock()

	g.notify(snapshot)
	return nil
}

// RecordFailure counts a failed login. Reaching the threshold starts the
// lock and schedules its release.
func (g *LockoutGuard) RecordFailure(ctx context.Context) LockoutState {
	if g == nil || !g.config.Enabled {
		return LockoutState{}
	}

	g.mu.Lock()
	now := g.clock.Now()
	g.state.FailedAttempts++
	if g.state.FailedAttempts >= g.config.Threshold && !g.state.Locked(now) {
		g.state.LockedUntil = now.Add(g.config.Duration)
		g.armLocked(g.config.Duration)
		g.logger.Warn("login locked", "attempts", g.state.FailedAttempts, "until", g.state.LockedUntil)
	}
	g.persistLocked(ctx)
	snapshot := g.state
	g.mu.Unlock()

	g.notify(snapshot)
	return snapshot
}

// RecordSuccess resets the counter and lifts any lock.
func (g *LockoutGuard) RecordSuccess(ctx context.Context) {
	if g == nil || !g.config.Enabled {
		return
	}

	g.mu.Lock()
	changed := g.state != (LockoutState{})
	g.resetLocked(ctx)
	g.mu.Unlock()

	if changed {
		g.notify(LockoutState{})
	}
}

// IsLocked reports whether logins are currently blocked.
func (g *LockoutGuard) IsLocked() bool {
	if g == nil || !g.config.Enabled {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Locked(g.clock.Now())
}

// State returns a snapshot.
func (g *LockoutGuard) State() LockoutState {
	if g == nil {
		return LockoutState{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Close cancels a pending unlock without touching persisted state.
func (g *LockoutGuard) Close() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.unlock.Stop()
	g.unlock = nil
}

func (g *LockoutGuard) armLocked(d time.Duration) {
	g.gen++
	g.unlock.Stop()
	gen := g.gen
	g.unlock = g.clock.AfterFunc(d, func() { g.release(gen) })
}

func (g *LockoutGuard) release(gen uint64) {
	g.mu.Lock()
	if gen != g.gen {
		g.mu.Unlock()
		return
	}
	g.resetLocked(context.Background())
	g.mu.Unlock()

	g.logger.Info("login lock released")
	g.notify(LockoutState{})
}

func (g *LockoutGuard) resetLocked(ctx context.Context) {
	g.gen++
	g.unlock.Stop()
	g.unlock = nil
	g.state = LockoutState{}
	g.persistLocked(ctx)
}

func (g *LockoutGuard) persistLocked(ctx context.Context) {
	if g.store == nil {
		return
	}

	var err error
	if g.state == (LockoutState{}) {
		err = g.store.Delete(ctx, g.key)
	} else {
		var data []byte
		data, err = json.Marshal(g.state)
		if err == nil {
			err = g.store.SetMany(ctx, map[string]string{g.key: string(data)})
		}
	}
	if err != nil {
		g.logger.Warn("persist lockout state", "err", fmt.Errorf("%w: %v", ErrLockoutUnavailable, err))
	}
}

func (g *LockoutGuard) notify(st LockoutState) {
	if g.onChange != nil {
		g.onChange(st)
	}
}
