package adsession

import (
	"context"
	"testing"
	"time"

	"github.com/innoad/adsession/permission"
)

func BenchmarkHasPermission(b *testing.B) {
	h := newHarness(b, harnessOpts{})
	login(b, h, false)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !h.m.HasPermission(permission.ViewCampaign) {
			b.Fatal("expected permission")
		}
	}
}

func BenchmarkHasAnyPermissionParallel(b *testing.B) {
	h := newHarness(b, harnessOpts{})
	login(b, h, false)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = h.m.HasAnyPermission(permission.ManageUsers, permission.ViewReports)
		}
	})
}

func BenchmarkNormalizeLogin(b *testing.B) {
	body := loginBody(b, signedToken("7", testEpoch.Add(time.Hour)), "rt-1", 3600, "USUARIO", "VER_CAMPANA")
	n := testNormalizer()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := n.login(body); err != nil {
			b.Fatalf("normalize failed: %v", err)
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	h := newHarness(b, harnessOpts{})
	login(b, h, false)
	h.client.setRefresh(func(string) ([]byte, error) {
		return refreshBody(b, "tok-bench", "", 3600), nil
	})

	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := h.m.Refresh(ctx); err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}
