package adsession

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/innoad/adsession/internal/offline"
	"github.com/innoad/adsession/vault"
)

// Refresh exchanges the stored refresh token for a new access token and
// reschedules the next renewal. Concurrent calls share one network
// exchange, which always uses the latest stored refresh token.
//
// Any failure signs the session out; refreshes are never retried. The
// exchange itself ignores caller cancellation. A caller whose ctx ends
// returns ctx.Err() while the exchange completes for everyone else.
func (m *Manager) Refresh(ctx context.Context) (Session, error) {
	shared := context.WithoutCancel(ctx)
	ch := m.refreshes.DoChan("refresh", func() (any, error) {
		return m.refresh(shared)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return m.Current(), res.Err
		}
		return res.Val.(Session), nil
	case <-ctx.Done():
		return m.Current(), ctx.Err()
	}
}

func (m *Manager) refresh(ctx context.Context) (Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return Session{}, ErrManagerClosed
	}
	cur := m.state.Get()
	if cur.IsAuthenticated() && cur.Mode == ModeLocal {
		m.mu.Unlock()
		return Session{}, newError(ErrLocalSession, "", nil)
	}

	stored, p, err := m.vault.Load(ctx)
	if err != nil && !errors.Is(err, vault.ErrNotFound) {
		m.mu.Unlock()
		return Session{}, newError(ErrStorageUnavailable, "", err)
	}
	if stored == nil || stored.RefreshToken == "" {
		m.mu.Unlock()
		return Session{}, newError(ErrNoRefreshToken, "", nil)
	}
	if offline.IsLocalToken(stored.AccessToken) {
		m.mu.Unlock()
		return Session{}, newError(ErrLocalSession, "", nil)
	}

	generation := m.generation
	if cur.IsAuthenticated() {
		cur.Status = StatusRefreshing
		m.state.Set(cur)
	}
	m.mu.Unlock()

	start := m.clock.Now()
	body, err := m.client.Refresh(ctx, stored.RefreshToken)
	m.metrics.Observe(MetricRefreshLatency, m.clock.Now().Sub(start))

	var res *authResult
	if err == nil {
		res, err = m.normalizer.refresh(body)
	} else {
		err = classify(err)
	}

	m.mu.Lock()
	if m.generation != generation {
		m.mu.Unlock()
		return Session{}, newError(ErrLoginSuperseded, "", nil)
	}

	if err == nil {
		err = m.storeRefreshedLocked(ctx, res)
	}
	if err != nil {
		m.metrics.Inc(MetricRefreshFailure)
		m.emit(ctx, EventRefreshFailed, err, messagePayload(err))
		prev, _ := m.logoutLocked(ctx, "refresh_failed")
		m.mu.Unlock()

		m.notifyServerLogout(ctx, prev)
		m.logger.Warn("refresh failed, session signed out", "op", "refresh", "err", err)
		return Session{}, err
	}

	// The profile may have been updated while the request was in flight.
	user := res.User
	if user == nil {
		user = m.state.Get().User
		if user == nil {
			user = m.decodeProfile(stored.Profile)
		}
	}
	refreshToken := res.RefreshToken
	if refreshToken == "" {
		refreshToken = stored.RefreshToken
	}

	sess := Session{
		Status:       StatusAuthenticated,
		User:         user,
		AccessToken:  res.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    m.clock.Now().Add(res.ExpiresIn),
		Persistence:  p,
		Mode:         ModeServer,
	}
	m.state.Set(sess)
	m.renewal.ScheduleFrom(res.ExpiresIn)
	m.integrity.Start()
	m.mu.Unlock()

	m.metrics.Inc(MetricRefreshSuccess)
	m.emit(ctx, EventTokenRefreshed, nil, map[string]string{
		"rotated": strconv.FormatBool(res.RefreshToken != "" && res.RefreshToken != stored.RefreshToken),
	})
	m.logger.Debug("token refreshed", "op", "refresh", "expires_at", sess.ExpiresAt)
	return m.Current(), nil
}

// storeRefreshedLocked writes the new token, and the rotated refresh token
// and profile when the server sent them, to the scope already in use.
func (m *Manager) storeRefreshedLocked(ctx context.Context, res *authResult) error {
	expiresAt := m.clock.Now().Add(res.ExpiresIn)
	if err := m.vault.UpdateAccessToken(ctx, res.AccessToken, expiresAt); err != nil {
		return newError(ErrStorageUnavailable, "", err)
	}
	if res.RefreshToken != "" {
		if err := m.vault.UpdateRefreshToken(ctx, res.RefreshToken); err != nil {
			return newError(ErrStorageUnavailable, "", err)
		}
	}
	if res.User != nil {
		raw, err := json.Marshal(res.User)
		if err != nil {
			return newError(ErrInvalidResponseFormat, "", err)
		}
		if err := m.vault.UpdateProfile(ctx, raw); err != nil {
			return newError(ErrStorageUnavailable, "", err)
		}
	}
	return nil
}

// scheduledRefresh runs when the renewal timer fires. Failures were already
// handled by signing out.
func (m *Manager) scheduledRefresh() {
	if _, err := m.Refresh(context.Background()); err != nil && !errors.Is(err, ErrLoginSuperseded) {
		m.logger.Info("scheduled refresh did not complete", "op", "refresh", "err", err)
	}
}

func messagePayload(err error) map[string]string {
	if msg := Message(err); msg != "" {
		return map[string]string{"message": msg}
	}
	return nil
}

