package adsession

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/innoad/adsession/clock"
	"github.com/innoad/adsession/internal/audit"
	"github.com/innoad/adsession/internal/fingerprint"
	"github.com/innoad/adsession/internal/limiters"
	"github.com/innoad/adsession/internal/observable"
	"github.com/innoad/adsession/internal/offline"
	"github.com/innoad/adsession/internal/scheduler"
	"github.com/innoad/adsession/jwt"
	"github.com/innoad/adsession/permission"
	"github.com/innoad/adsession/transport"
	"github.com/innoad/adsession/vault"
)

// Manager owns the authenticated session of one client process: login,
// logout, proactive renewal, the periodic integrity check, the failed-login
// lockout, device tracking and the audit trail.
//
// All methods are safe for concurrent use. State subscribers and audit
// sinks are called synchronously and must not call Login, Logout, Refresh,
// CheckIntegrity or UpdateProfile from inside the callback.
type Manager struct {
	config     Config
	client     AuthClient
	vault      *vault.Vault
	resolver   *permission.Resolver
	decoder    *jwt.Decoder
	normalizer responseNormalizer
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *Metrics

	lockout    *limiters.LockoutGuard
	device     *fingerprint.Monitor
	offline    *offline.Authenticator
	emitter    *audit.Emitter
	dispatcher *audit.Dispatcher

	renewal   *scheduler.Once
	integrity *scheduler.Interval
	refreshes singleflight.Group

	state   *observable.Subject[Session]
	closers []io.Closer
	cancels []func()

	mu sync.Mutex
	// generation changes whenever a login completes or the session is
	// signed out; in-flight refreshes compare against it.
	generation uint64
	// signOuts changes only on sign-out; in-flight logins compare against it.
	signOuts uint64
	logins   int
	closed   bool
}

type managerDeps struct {
	client     AuthClient
	persistent vault.Scope
	ephemeral  vault.Scope
	clock      clock.Clock
	logger     *slog.Logger
	sinks      []AuditSink
	env        fingerprint.Provider
	resolver   *permission.Resolver
	closers    []io.Closer
}

func (d managerDeps) close() {
	for _, c := range d.closers {
		_ = c.Close()
	}
}

func newManager(cfg Config, d managerDeps) (*Manager, error) {
	keys := vault.DefaultKeys(cfg.Storage.KeyPrefix)
	logger := d.logger.With("component", "adsession")

	m := &Manager{
		config:   cfg,
		client:   d.client,
		vault:    vault.New(d.persistent, d.ephemeral, keys),
		resolver: d.resolver,
		decoder:  jwt.NewDecoder(),
		clock:    d.clock,
		logger:   logger,
		metrics:  NewMetrics(cfg.Metrics),
		state:    observable.NewSubject(Session{Status: StatusSignedOut}),
		closers:  d.closers,
	}
	m.normalizer = responseNormalizer{decoder: m.decoder, now: m.clock.Now}

	if cfg.Offline.Enabled {
		auth, err := offline.New(cfg.Offline.Accounts, cfg.Offline.SessionTTL)
		if err != nil {
			return nil, err
		}
		m.offline = auth
	}

	if cfg.Audit.Forward {
		m.dispatcher = audit.NewDispatcher(audit.Config{
			Enabled:     true,
			BufferSize:  cfg.Audit.BufferSize,
			DropIfFull:  cfg.Audit.DropIfFull,
			PostTimeout: cfg.Audit.PostTimeout,
		}, d.client, logger)
	}

	if cfg.Device.Enabled {
		m.device = fingerprint.NewMonitor(d.env, d.persistent, keys.Fingerprint, logger, m.onDeviceChanged)
	}
	fp := func() string { return "" }
	if m.device != nil {
		fp = m.device.Current
	}

	m.emitter = audit.NewEmitter(observable.NewStream[audit.Event](), m.dispatcher, m.auditView, fp, m.clock.Now)
	for _, sink := range d.sinks {
		m.cancels = append(m.cancels, m.emitter.Subscribe(func(e audit.Event) {
			sink.Emit(context.Background(), e)
		}))
	}

	m.lockout = limiters.NewLockoutGuard(limiters.LockoutConfig{
		Enabled:   cfg.Lockout.Enabled,
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	}, m.clock, d.persistent, keys.Lockout, logger, m.onLockoutChanged)

	m.renewal = scheduler.NewOnce(m.clock, cfg.Session.RefreshMargin, m.scheduledRefresh)
	m.integrity = scheduler.NewInterval(m.clock, cfg.Session.IntegrityInterval, m.integrityTick)

	return m, nil
}

/*
====================================
STATE ACCESSORS
====================================
*/

// Current returns the current session snapshot.
func (m *Manager) Current() Session {
	s := m.state.Get()
	s.User = s.User.clone()
	return s
}

// Subscribe calls fn with the current session and then with every change,
// synchronously and in order. The returned function unsubscribes.
func (m *Manager) Subscribe(fn func(Session)) (cancel func()) {
	return m.state.Subscribe(fn)
}

// SubscribeAudit calls fn with every audit event emitted after the call.
func (m *Manager) SubscribeAudit(fn func(AuditEvent)) (cancel func()) {
	return m.emitter.Subscribe(fn)
}

func (m *Manager) IsAuthenticated() bool {
	return m.state.Get().IsAuthenticated()
}

// AccessToken returns the current access token, or "" when signed out. It
// fits transport.NewBearerTransport.
func (m *Manager) AccessToken() string {
	s := m.state.Get()
	if !s.IsAuthenticated() {
		return ""
	}
	return s.AccessToken
}

func (m *Manager) User() *UserProfile {
	s := m.state.Get()
	if !s.IsAuthenticated() {
		return nil
	}
	return s.User.clone()
}

// LockoutState returns the failed-login counter and lock deadline.
func (m *Manager) LockoutState() limiters.LockoutState {
	return m.lockout.State()
}

func (m *Manager) Config() Config {
	return cloneConfig(m.config)
}

func (m *Manager) Resolver() *permission.Resolver {
	return m.resolver
}

func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	return m.metrics.Snapshot()
}

// AuditDropped is the number of events the forwarder dropped because its
// queue was full.
func (m *Manager) AuditDropped() uint64 {
	return m.dispatcher.Dropped()
}

// AuditForwardFailures is the number of failed remote posts.
func (m *Manager) AuditForwardFailures() uint64 {
	return m.dispatcher.Failed()
}

// Fingerprint returns the current device fingerprint, or "" when device
// tracking is off.
func (m *Manager) Fingerprint() string {
	if m.device == nil {
		return ""
	}
	return m.device.Current()
}

// Close stops every timer, drains the audit forwarder and releases owned
// storage clients. The stored session is kept. Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.renewal.Cancel()
	m.integrity.Stop()
	m.mu.Unlock()

	m.lockout.Close()
	m.dispatcher.Close()
	for _, cancel := range m.cancels {
		cancel()
	}

	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

/*
====================================
PERMISSIONS
====================================
*/

// IsAdmin reports whether the signed-in user holds the administrator role.
func (m *Manager) IsAdmin() bool {
	s := m.state.Get()
	return s.IsAuthenticated() && s.User != nil && m.resolver.IsAdmin(s.User.Role.Name)
}

// HasPermission checks the role table, then the permissions the server sent
// with the profile. Administrators hold every permission.
func (m *Manager) HasPermission(perm string) bool {
	return m.hasPermission(m.state.Get(), perm)
}

// HasAnyPermission reports whether at least one of perms is held. It is
// false for an empty list.
func (m *Manager) HasAnyPermission(perms ...string) bool {
	s := m.state.Get()
	for _, p := range perms {
		if m.hasPermission(s, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of perms is held.
func (m *Manager) HasAllPermissions(perms ...string) bool {
	s := m.state.Get()
	if !s.IsAuthenticated() {
		return false
	}
	for _, p := range perms {
		if !m.hasPermission(s, p) {
			return false
		}
	}
	return true
}

// HasRouteAccess reports whether the user's role allows path.
func (m *Manager) HasRouteAccess(path string) bool {
	s := m.state.Get()
	if !s.IsAuthenticated() || s.User == nil {
		return false
	}
	return m.resolver.IsAdmin(s.User.Role.Name) || m.resolver.HasRouteAccess(s.User.Role.Name, path)
}

// Permissions lists every permission held, sorted.
func (m *Manager) Permissions() []string {
	s := m.state.Get()
	if !s.IsAuthenticated() || s.User == nil {
		return nil
	}

	set := make(map[string]struct{})
	for _, p := range m.resolver.Permissions(s.User.Role.Name) {
		set[p] = struct{}{}
	}
	for _, p := range s.User.Role.Permissions {
		set[p] = struct{}{}
	}
	for _, p := range s.User.Permissions {
		set[p] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) hasPermission(s Session, perm string) bool {
	if !s.IsAuthenticated() || s.User == nil || perm == "" {
		return false
	}
	role := s.User.Role.Name
	if m.resolver.IsAdmin(role) || m.resolver.HasPermission(role, perm) {
		return true
	}
	return slices.Contains(s.User.Role.Permissions, perm) || slices.Contains(s.User.Permissions, perm)
}

/*
====================================
INTERNAL HELPERS
====================================
*/

func (m *Manager) auditView() audit.SessionView {
	s := m.state.Get()
	view := audit.SessionView{
		Forwardable: s.IsAuthenticated() && s.Mode == ModeServer,
		AccessToken: s.AccessToken,
	}
	if s.User != nil {
		view.UserID = s.User.ID
	}
	return view
}

func (m *Manager) emit(ctx context.Context, eventType string, err error, payload map[string]string) {
	m.emitter.Emit(ctx, audit.Record{
		Type:    eventType,
		Success: err == nil,
		Error:   errorCode(err),
		Payload: payload,
	})
}

func (m *Manager) onDeviceChanged(ctx context.Context, previous, current string) {
	m.metrics.Inc(MetricDeviceChanged)
	m.logger.Warn("device fingerprint changed", "previous", previous, "current", current)
	m.emit(ctx, EventDeviceChanged, nil, map[string]string{
		"previous": previous,
		"current":  current,
	})
}

// onLockoutChanged mirrors the lock into Status while nobody is signed in.
// The guard calls it without holding its own lock.
func (m *Manager) onLockoutChanged(st limiters.LockoutState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.state.Get()
	locked := st.Locked(m.clock.Now())
	switch {
	case locked && cur.Status == StatusSignedOut:
		m.state.Set(Session{Status: StatusLocked})
	case !locked && cur.Status == StatusLocked:
		m.state.Set(Session{Status: StatusSignedOut})
	}
}

func (m *Manager) idleStatus() Status {
	if m.lockout.IsLocked() {
		return StatusLocked
	}
	return StatusSignedOut
}

// classify turns a transport failure into the error kinds callers see.
// Every 4xx answer is a credential rejection; everything else means the
// service could not be reached.
func classify(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var se *transport.StatusError
	if errors.As(err, &se) {
		return newError(ErrInvalidCredentials, se.Message, err)
	}
	return newError(ErrNetworkUnavailable, transport.Message(err), err)
}

func (m *Manager) decodeProfile(raw []byte) *UserProfile {
	if len(raw) == 0 {
		return nil
	}
	var p UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		m.logger.Warn("discarding unreadable stored profile", "err", err)
		return nil
	}
	return &p
}
