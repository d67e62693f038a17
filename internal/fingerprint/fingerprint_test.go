package fingerprint

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/innoad/adsession/vault"
)

func kiosk() Environment {
	return Environment{
		UserAgent:       "Mozilla/5.0 (X11; Linux x86_64)",
		Locale:          "es-CO",
		ScreenWidth:     1920,
		ScreenHeight:    1080,
		TZOffsetMinutes: -300,
		RenderDigest:    "a1b2c3",
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestComputeDeterministic(t *testing.T) {
	a, b := Compute(kiosk()), Compute(kiosk())
	if a != b {
		t.Fatalf("digest not stable: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
	other := kiosk()
	other.ScreenWidth = 1280
	if Compute(other) == a {
		t.Fatal("screen change should alter digest")
	}
}

func TestCheckAndRecord(t *testing.T) {
	ctx := context.Background()
	store := vault.NewMemoryScope()
	env := kiosk()
	var events [][2]string
	m := NewMonitor(ProviderFunc(func() Environment { return env }), store, "innoad_device_fingerprint", quiet(),
		func(_ context.Context, prev, cur string) { events = append(events, [2]string{prev, cur}) })

	if m.CheckAndRecord(ctx, true) {
		t.Fatal("first sighting is not a change")
	}
	if m.CheckAndRecord(ctx, true) {
		t.Fatal("same environment reported as change")
	}

	first := m.Current()
	env.Locale = "en-US"
	if !m.CheckAndRecord(ctx, true) {
		t.Fatal("expected change after locale switch")
	}
	if len(events) != 1 || events[0][0] != first || events[0][1] != m.Current() {
		t.Fatalf("unexpected events %v", events)
	}
	stored, _, _ := store.Get(ctx, "innoad_device_fingerprint")
	if stored != m.Current() {
		t.Fatal("new fingerprint not stored")
	}
}

func TestChangeWhileSignedOutIsSilent(t *testing.T) {
	ctx := context.Background()
	store := vault.NewMemoryScope()
	_ = store.SetMany(ctx, map[string]string{"fp": "previous-device"})

	calls := 0
	m := NewMonitor(Static(kiosk()), store, "fp", quiet(), func(context.Context, string, string) { calls++ })
	if !m.CheckAndRecord(ctx, false) {
		t.Fatal("expected change to be reported")
	}
	if calls != 0 {
		t.Fatal("no event expected without an authenticated session")
	}
}

func TestSystemProviderProducesDigest(t *testing.T) {
	env := System{Agent: "test"}.Environment()
	if env.UserAgent == "" || env.RenderDigest == "" {
		t.Fatalf("incomplete environment %+v", env)
	}
	if Compute(env) == "" {
		t.Fatal("empty digest")
	}
}
