package adsession

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/innoad/adsession/clock"
	"github.com/innoad/adsession/internal/fingerprint"
	"github.com/innoad/adsession/transport"
	"github.com/innoad/adsession/vault"
)

var testEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClient struct {
	mu        sync.Mutex
	loginFn   func(req transport.LoginRequest) ([]byte, error)
	refreshFn func(refreshToken string) ([]byte, error)
	logoutErr error
	posted    []postedEvent

	logins    atomic.Int32
	refreshes atomic.Int32
	logouts   atomic.Int32
}

type postedEvent struct {
	token string
	event AuditEvent
}

func (c *fakeClient) Login(_ context.Context, req transport.LoginRequest) ([]byte, error) {
	c.logins.Add(1)
	c.mu.Lock()
	fn := c.loginFn
	c.mu.Unlock()
	return fn(req)
}

func (c *fakeClient) Refresh(ctx context.Context, refreshToken string) ([]byte, error) {
	c.refreshes.Add(1)
	c.mu.Lock()
	fn := c.refreshFn
	c.mu.Unlock()
	if fn == nil {
		return nil, &transport.StatusError{StatusCode: 401, Message: "refresh disabled"}
	}
	body, err := fn(refreshToken)
	if err == nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return body, err
}

func (c *fakeClient) Logout(_ context.Context, _ string) error {
	c.logouts.Add(1)
	return c.logoutErr
}

func (c *fakeClient) PostSecurityEvent(_ context.Context, token string, event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := event.(AuditEvent); ok {
		c.posted = append(c.posted, postedEvent{token: token, event: e})
	}
	return nil
}

func (c *fakeClient) setLogin(fn func(req transport.LoginRequest) ([]byte, error)) {
	c.mu.Lock()
	c.loginFn = fn
	c.mu.Unlock()
}

func (c *fakeClient) setRefresh(fn func(refreshToken string) ([]byte, error)) {
	c.mu.Lock()
	c.refreshFn = fn
	c.mu.Unlock()
}

func (c *fakeClient) postedTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.posted))
	for _, p := range c.posted {
		out = append(out, p.event.Type)
	}
	return out
}

type harness struct {
	m          *Manager
	client     *fakeClient
	clock      *clock.FakeClock
	persistent *vault.MemoryScope
	ephemeral  *vault.MemoryScope
	events     *eventLog
}

type eventLog struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (l *eventLog) Emit(_ context.Context, e AuditEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) count(eventType string) int {
	n := 0
	for _, t := range l.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

type harnessOpts struct {
	configure  func(*Config)
	persistent *vault.MemoryScope
	clock      *clock.FakeClock
	env        fingerprint.Environment
}

func testEnvironment() fingerprint.Environment {
	return fingerprint.Environment{
		UserAgent:       "adsession-test",
		Locale:          "es-CO",
		ScreenWidth:     1920,
		ScreenHeight:    1080,
		TZOffsetMinutes: -300,
		RenderDigest:    "canvas-a",
	}
}

func newHarness(t testing.TB, opts harnessOpts) *harness {
	t.Helper()

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://api.innoad.test/api"
	cfg.Metrics.EnableLatencyHistograms = true
	if opts.configure != nil {
		opts.configure(&cfg)
	}

	fc := opts.clock
	if fc == nil {
		fc = clock.Fake(testEpoch)
	}
	persistent := opts.persistent
	if persistent == nil {
		persistent = vault.NewMemoryScope()
	}
	env := opts.env
	if env == (fingerprint.Environment{}) {
		env = testEnvironment()
	}

	h := &harness{
		client:     &fakeClient{},
		clock:      fc,
		persistent: persistent,
		ephemeral:  vault.NewMemoryScope(),
		events:     &eventLog{},
	}
	h.client.setLogin(func(transport.LoginRequest) ([]byte, error) {
		return loginBody(t, h.token("7", 300*time.Second), "rt-1", 300, "USUARIO"), nil
	})

	m, err := New().
		WithConfig(cfg).
		WithClient(h.client).
		WithPersistentScope(persistent).
		WithEphemeralScope(h.ephemeral).
		WithClock(fc).
		WithEnvironment(fingerprint.Static(env)).
		WithAuditSink(h.events).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	h.m = m
	return h
}

// token returns an HS256 JWT for sub expiring ttl after the fake clock's now.
func (h *harness) token(sub string, ttl time.Duration) string {
	return signedToken(sub, h.clock.Now().Add(ttl))
}

func signedToken(sub string, exp time.Time) string {
	tok := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
		"iat": exp.Add(-time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return s
}

func loginBody(t testing.TB, token, refresh string, expiresIn int, role string, perms ...string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"exitoso": true,
		"mensaje": "Inicio de sesión exitoso",
		"datos": map[string]any{
			"token":              token,
			"tokenActualizacion": refresh,
			"expiraEn":           expiresIn,
			"usuario": map[string]any{
				"id":             7,
				"nombreUsuario":  "ana",
				"email":          "ana@innoad.test",
				"nombreCompleto": "Ana Ruiz",
				"rol":            map[string]any{"nombre": role, "permisos": perms},
			},
		},
	})
	if err != nil {
		t.Fatalf("marshal login body: %v", err)
	}
	return body
}

func refreshBody(t testing.TB, token, refresh string, expiresIn int) []byte {
	t.Helper()
	datos := map[string]any{"token": token, "expiraEn": expiresIn}
	if refresh != "" {
		datos["tokenActualizacion"] = refresh
	}
	body, err := json.Marshal(map[string]any{"exitoso": true, "datos": datos})
	if err != nil {
		t.Fatalf("marshal refresh body: %v", err)
	}
	return body
}

func scopeHas(t testing.TB, s vault.Scope, key string) bool {
	t.Helper()
	_, ok, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("scope get %s: %v", key, err)
	}
	return ok
}

func login(t testing.TB, h *harness, remember bool) Session {
	t.Helper()
	sess, err := h.m.Login(context.Background(), Credentials{Identifier: "ana", Password: "secret"}, remember)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return sess
}
