package adsession

import (
	"context"
	"encoding/json"
)

// UpdateProfile replaces the cached profile of the signed-in user. The new
// profile is written to the scope that holds the session.
func (m *Manager) UpdateProfile(ctx context.Context, profile UserProfile) (Session, error) {
	raw, err := json.Marshal(profile)
	if err != nil {
		return m.Current(), err
	}

	m.mu.Lock()
	cur := m.state.Get()
	if !cur.IsAuthenticated() {
		m.mu.Unlock()
		return m.Current(), newError(ErrNotAuthenticated, "", nil)
	}
	if err := m.vault.UpdateProfile(ctx, raw); err != nil {
		m.mu.Unlock()
		return m.Current(), newError(ErrStorageUnavailable, "", err)
	}
	cur.User = profile.clone()
	m.state.Set(cur)
	m.mu.Unlock()

	m.metrics.Inc(MetricProfileUpdated)
	m.emit(ctx, EventProfileUpdated, nil, map[string]string{"user": profile.ID})
	return m.Current(), nil
}
