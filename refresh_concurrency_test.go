package adsession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/innoad/adsession/transport"
)

func TestConcurrentRefreshCoalesces(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	login(t, h, true)

	var (
		mu      sync.Mutex
		current = "rt-1"
		rotated int
	)
	gate := make(chan struct{})
	h.client.setRefresh(func(rt string) ([]byte, error) {
		<-gate
		mu.Lock()
		defer mu.Unlock()
		if rt != current {
			return nil, fmt.Errorf("stale refresh token %q, want %q", rt, current)
		}
		rotated++
		current = fmt.Sprintf("rt-%d", rotated+1)
		return refreshBody(t, h.token("7", time.Hour), current, 3600), nil
	})

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := h.m.Refresh(context.Background())
			results <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	if got := h.client.refreshes.Load(); got >= n {
		t.Fatalf("expected concurrent refreshes to share a request, got %d requests", got)
	}

	mu.Lock()
	want := current
	mu.Unlock()
	if sess := h.m.Current(); sess.RefreshToken != want || sess.Status != StatusAuthenticated {
		t.Fatalf("session holds %q (%v), want latest %q", sess.RefreshToken, sess.Status, want)
	}
}

func TestRefreshDuringLoginKeepsNewSession(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	login(t, h, true)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.client.setRefresh(func(string) ([]byte, error) {
		close(entered)
		<-release
		return refreshBody(t, "stale-token", "", 3600), nil
	})

	errc := make(chan error, 1)
	go func() {
		_, err := h.m.Refresh(context.Background())
		errc <- err
	}()
	<-entered

	h.client.setLogin(func(transport.LoginRequest) ([]byte, error) {
		return loginBody(t, "fresh-token", "rt-fresh", 3600, "USUARIO"), nil
	})
	login(t, h, false)
	close(release)

	if err := <-errc; err == nil {
		t.Fatal("refresh overlapping a re-login must be discarded")
	}
	if sess := h.m.Current(); sess.AccessToken != "fresh-token" || sess.RefreshToken != "rt-fresh" {
		t.Fatalf("re-login overwritten by stale refresh: %+v", sess)
	}
}

func TestRefreshKeepsProfileUpdatedInFlight(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	login(t, h, true)

	entered := make(chan struct{})
	release := make(chan struct{})
	h.client.setRefresh(func(string) ([]byte, error) {
		close(entered)
		<-release
		return refreshBody(t, "tok-renewed", "", 3600), nil
	})

	errc := make(chan error, 1)
	go func() {
		_, err := h.m.Refresh(context.Background())
		errc <- err
	}()
	<-entered

	profile := *h.m.User()
	profile.DisplayName = "Ana Updated"
	if _, err := h.m.UpdateProfile(context.Background(), profile); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	sess := h.m.Current()
	if sess.AccessToken != "tok-renewed" {
		t.Fatalf("refresh not applied: %+v", sess)
	}
	if got := sess.User.Name(); got != "Ana Updated" {
		t.Fatalf("in-memory profile reverted to %q", got)
	}
	stored, _, err := h.m.vault.Load(context.Background())
	if err != nil {
		t.Fatalf("vault load: %v", err)
	}
	if got := h.m.decodeProfile(stored.Profile).Name(); got != "Ana Updated" {
		t.Fatalf("stored profile is %q", got)
	}
}

func TestRefreshSurvivesCallerCancellation(t *testing.T) {
	h := newHarness(t, harnessOpts{})
	login(t, h, true)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.client.setRefresh(func(string) ([]byte, error) {
		once.Do(func() { close(entered) })
		<-release
		return refreshBody(t, "tok-renewed", "", 3600), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := h.m.Refresh(ctx)
		errc <- err
	}()
	<-entered
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller got %v, want context.Canceled", err)
	}
	close(release)

	// Either joins the detached exchange or starts after it finished.
	if _, err := h.m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh after cancellation: %v", err)
	}
	if n := h.events.count(EventRefreshFailed); n != 0 {
		t.Fatalf("cancelled caller signed the session out (%d refresh_failed)", n)
	}
	if sess := h.m.Current(); sess.Status != StatusAuthenticated || sess.AccessToken != "tok-renewed" {
		t.Fatalf("session lost after cancelled refresh: %+v", sess)
	}
}
