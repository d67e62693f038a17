package adsession

import (
	"context"
	"errors"
	"time"
)

// Logout ends the session. Local state is cleared first; the server is
// then notified on a best-effort basis. Logout is idempotent and only
// fails when the stored credentials could not be removed, in which case
// the in-memory session is still signed out.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	prev, err := m.logoutLocked(ctx, "user")
	m.mu.Unlock()

	if prev.IsAuthenticated() {
		m.metrics.Inc(MetricLogout)
		m.logger.Info("logged out", "op", "logout")
	}
	m.notifyServerLogout(ctx, prev)
	return err
}

// CheckIntegrity signs the session out when the access token has expired.
// The exp claim is read from the token itself; opaque tokens fall back to
// the stored expiry. It runs on the integrity interval and may also be
// called directly.
func (m *Manager) CheckIntegrity(ctx context.Context) error {
	m.mu.Lock()
	cur := m.state.Get()
	if !cur.IsAuthenticated() {
		m.mu.Unlock()
		return nil
	}

	expiresAt, err := m.decoder.ExpiresAt(cur.AccessToken)
	if err != nil {
		expiresAt = cur.ExpiresAt
	}
	now := m.clock.Now()
	if now.Before(expiresAt) {
		m.mu.Unlock()
		return nil
	}

	m.metrics.Inc(MetricSessionExpired)
	m.emit(ctx, EventSessionExpired, nil, map[string]string{
		"expired_at": expiresAt.UTC().Format(time.RFC3339),
	})
	prev, _ := m.logoutLocked(ctx, "session_expired")
	m.mu.Unlock()

	m.notifyServerLogout(ctx, prev)
	m.logger.Warn("session expired, signed out", "op", "integrity", "expired_at", expiresAt)
	return newError(ErrSessionExpired, "", nil)
}

func (m *Manager) integrityTick() {
	if err := m.CheckIntegrity(context.Background()); err != nil && !errors.Is(err, ErrSessionExpired) {
		m.logger.Warn("integrity check", "op", "integrity", "err", err)
	}
}

// logoutLocked emits the logout event while the session is still
// authenticated, so it can be forwarded with the outgoing token, then signs
// out. It returns the session that was ended. A storage error is returned
// after the in-memory session has been cleared regardless.
func (m *Manager) logoutLocked(ctx context.Context, reason string) (Session, error) {
	prev := m.state.Get()
	if prev.IsAuthenticated() {
		m.emit(ctx, EventLogout, nil, map[string]string{"reason": reason})
	}

	m.generation++
	m.signOuts++
	m.renewal.Cancel()
	m.integrity.Stop()

	var err error
	if clearErr := m.vault.Clear(ctx); clearErr != nil {
		m.logger.Warn("clear stored credentials", "op", "logout", "err", clearErr)
		err = newError(ErrStorageUnavailable, "", clearErr)
	}
	idle := m.idleStatus()
	if cur := m.state.Get(); cur.Status != idle || cur.AccessToken != "" {
		m.state.Set(Session{Status: idle})
	}
	return prev, err
}

// notifyServerLogout tells the server a token is being discarded. Local
// sessions are never reported.
func (m *Manager) notifyServerLogout(ctx context.Context, prev Session) {
	if prev.AccessToken == "" || prev.Mode == ModeLocal {
		return
	}
	if err := m.client.Logout(ctx, prev.AccessToken); err != nil {
		m.logger.Warn("logout notification failed", "op", "logout", "err", err)
	}
}
