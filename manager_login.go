package adsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/innoad/adsession/internal/offline"
	"github.com/innoad/adsession/transport"
	"github.com/innoad/adsession/vault"
)

// Credentials are what the user typed. Identifier is a username or email.
type Credentials struct {
	Identifier string
	Password   string
}

// Login authenticates against the server and establishes a session stored
// in the persistent scope when remember is true, the ephemeral one
// otherwise.
//
// While the lockout is active Login fails with ErrAccountLocked without a
// network call. When offline mode is enabled and the server cannot be
// reached, the offline allow-list is tried before giving up.
func (m *Manager) Login(ctx context.Context, creds Credentials, remember bool) (Session, error) {
	if m.lockout.IsLocked() {
		st := m.lockout.State()
		err := newError(ErrAccountLocked, fmt.Sprintf("try again after %s", st.LockedUntil.Format(time.RFC3339)), nil)
		m.metrics.Inc(MetricLoginLocked)
		m.emit(ctx, EventLoginFailed, err, map[string]string{"identifier": creds.Identifier})
		return m.Current(), err
	}

	signOuts, err := m.beginLogin()
	if err != nil {
		return m.Current(), err
	}

	start := m.clock.Now()
	body, err := m.client.Login(ctx, transport.LoginRequest{
		Identifier: creds.Identifier,
		Password:   creds.Password,
		Remember:   remember,
	})
	m.metrics.Observe(MetricLoginLatency, m.clock.Now().Sub(start))

	var res *authResult
	if err == nil {
		res, err = m.normalizer.login(body)
	} else {
		err = classify(err)
	}

	if err != nil {
		if m.offline != nil && errors.Is(err, ErrNetworkUnavailable) && ctx.Err() == nil {
			return m.loginOffline(ctx, creds, remember, signOuts, err)
		}
		return m.failLogin(ctx, creds, err)
	}

	sess, err := m.completeLogin(ctx, res, vault.ForRemember(remember), ModeServer, signOuts)
	if err != nil {
		if errors.Is(err, ErrLoginSuperseded) {
			return m.Current(), err
		}
		return m.failLogin(ctx, creds, err)
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.emit(ctx, EventLoginSuccess, nil, map[string]string{
		"remember": strconv.FormatBool(remember),
		"mode":     ModeServer.String(),
	})
	m.checkDevice(ctx)
	m.logger.Info("login succeeded", "op", "login", "user", sess.User.ID, "persistence", sess.Persistence.String())
	return sess, nil
}

func (m *Manager) loginOffline(ctx context.Context, creds Credentials, remember bool, signOuts uint64, cause error) (Session, error) {
	local, err := m.offline.Authenticate(creds.Identifier, creds.Password)
	if err != nil {
		m.logger.Info("offline login rejected", "op", "login", "err", err)
		return m.failLogin(ctx, creds, newError(ErrInvalidCredentials, Message(cause), cause))
	}

	m.emit(ctx, EventLoginFailed, cause, map[string]string{
		"identifier": creds.Identifier,
		"fallback":   "offline",
	})

	role := local.Account.Role
	if canonical, ok := m.resolver.Normalize(role); ok {
		role = canonical
	}
	res := &authResult{
		AccessToken:  local.AccessToken,
		RefreshToken: local.RefreshToken,
		ExpiresIn:    local.ExpiresIn,
		User: &UserProfile{
			ID:          local.Account.ID,
			Username:    local.Account.Username,
			Email:       local.Account.Email,
			DisplayName: local.Account.DisplayName,
			Role:        Role{Name: role, Level: m.resolver.Level(role)},
		},
	}

	sess, err := m.completeLogin(ctx, res, vault.ForRemember(remember), ModeLocal, signOuts)
	if err != nil {
		if errors.Is(err, ErrLoginSuperseded) {
			return m.Current(), err
		}
		return m.failLogin(ctx, creds, err)
	}

	m.metrics.Inc(MetricLoginSuccess)
	m.metrics.Inc(MetricOfflineLogin)
	m.emit(ctx, EventOfflineLogin, nil, map[string]string{"reason": errorCode(cause)})
	m.emit(ctx, EventLoginSuccess, nil, map[string]string{
		"remember": strconv.FormatBool(remember),
		"mode":     ModeLocal.String(),
	})
	m.checkDevice(ctx)
	m.logger.Warn("offline login", "op", "login", "user", sess.User.ID, "cause", cause)
	return sess, nil
}

// beginLogin marks a login in flight and returns the sign-out counter the
// completion must still match.
func (m *Manager) beginLogin() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrManagerClosed
	}
	m.logins++
	if cur := m.state.Get(); !cur.IsAuthenticated() && cur.Status != StatusAuthenticating {
		m.state.Set(Session{Status: StatusAuthenticating})
	}
	return m.signOuts, nil
}

// endLoginLocked undoes beginLogin for an attempt that did not establish a
// session.
func (m *Manager) endLoginLocked() {
	m.logins--
	if m.logins == 0 && m.state.Get().Status == StatusAuthenticating {
		m.state.Set(Session{Status: m.idleStatus()})
	}
}

// completeLogin stores the new session and arms its timers. The previous
// renewal is cancelled before the new one is scheduled.
func (m *Manager) completeLogin(ctx context.Context, res *authResult, p Persistence, mode Mode, signOuts uint64) (Session, error) {
	profile, err := json.Marshal(res.User)
	if err != nil {
		return Session{}, newError(ErrInvalidResponseFormat, "", err)
	}
	expiresAt := m.clock.Now().Add(res.ExpiresIn)

	m.mu.Lock()
	if m.signOuts != signOuts || m.closed {
		m.endLoginLocked()
		m.mu.Unlock()
		return Session{}, newError(ErrLoginSuperseded, "", nil)
	}

	err = m.vault.Save(ctx, vault.Credentials{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    expiresAt,
		Profile:      profile,
	}, p)
	if err != nil {
		m.endLoginLocked()
		m.mu.Unlock()
		return Session{}, newError(ErrStorageUnavailable, "", err)
	}

	m.generation++
	m.logins--
	m.renewal.Cancel()
	sess := Session{
		Status:       StatusAuthenticated,
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    expiresAt,
		Persistence:  p,
		Mode:         mode,
	}
	m.state.Set(sess)
	if mode == ModeServer {
		m.renewal.ScheduleFrom(res.ExpiresIn)
	}
	m.integrity.Start()
	m.mu.Unlock()

	m.lockout.RecordSuccess(ctx)
	return m.Current(), nil
}

// failLogin records the failure against the lockout and reports it.
func (m *Manager) failLogin(ctx context.Context, creds Credentials, err error) (Session, error) {
	m.mu.Lock()
	m.endLoginLocked()
	m.mu.Unlock()

	st := m.lockout.RecordFailure(ctx)
	m.metrics.Inc(MetricLoginFailure)

	payload := map[string]string{"identifier": creds.Identifier}
	if st.FailedAttempts > 0 {
		payload["attempts"] = strconv.Itoa(st.FailedAttempts)
	}
	if msg := Message(err); msg != "" {
		payload["message"] = msg
	}
	m.emit(ctx, EventLoginFailed, err, payload)

	if st.Locked(m.clock.Now()) {
		m.metrics.Inc(MetricAccountLocked)
		m.emit(ctx, EventAccountLocked, nil, map[string]string{
			"identifier":   creds.Identifier,
			"attempts":     strconv.Itoa(st.FailedAttempts),
			"locked_until": st.LockedUntil.UTC().Format(time.RFC3339),
		})
	}

	m.logger.Info("login failed", "op", "login", "attempts", st.FailedAttempts, "err", err)
	return m.Current(), err
}

func (m *Manager) checkDevice(ctx context.Context) {
	if m.device != nil {
		m.device.CheckAndRecord(ctx, m.IsAuthenticated())
	}
}

// Hydrate restores a stored session whose expiry is still in the future.
// A stored but expired session is cleared. Build calls Hydrate when
// Session.HydrateOnBuild is set.
func (m *Manager) Hydrate(ctx context.Context) (Session, error) {
	creds, p, err := m.vault.Load(ctx)
	if err != nil && !errors.Is(err, vault.ErrNotFound) {
		return m.Current(), newError(ErrStorageUnavailable, "", err)
	}

	now := m.clock.Now()
	m.mu.Lock()
	if creds == nil {
		if !m.state.Get().IsAuthenticated() {
			m.state.Set(Session{Status: m.idleStatus()})
		}
		m.mu.Unlock()
		return m.Current(), nil
	}
	if !now.Before(creds.ExpiresAt) {
		if err := m.vault.Clear(ctx); err != nil {
			m.logger.Warn("clear expired session", "err", err)
		}
		m.state.Set(Session{Status: m.idleStatus()})
		m.mu.Unlock()
		m.logger.Info("stored session expired", "op", "hydrate", "expired_at", creds.ExpiresAt)
		return m.Current(), nil
	}

	mode := ModeServer
	if offline.IsLocalToken(creds.AccessToken) {
		mode = ModeLocal
	}
	sess := Session{
		Status:       StatusAuthenticated,
		User:         m.decodeProfile(creds.Profile),
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ExpiresAt:    creds.ExpiresAt,
		Persistence:  p,
		Mode:         mode,
	}
	m.generation++
	m.renewal.Cancel()
	m.state.Set(sess)
	if mode == ModeServer {
		m.renewal.ScheduleFrom(creds.ExpiresAt.Sub(now))
	}
	m.integrity.Start()
	m.mu.Unlock()

	m.checkDevice(ctx)
	m.logger.Info("session restored", "op", "hydrate", "persistence", p.String(), "mode", mode.String())
	return m.Current(), nil
}
