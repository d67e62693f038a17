package adsession_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/innoad/adsession"
	"github.com/innoad/adsession/permission"
)

const exampleLogin = `{"exitoso":true,"datos":{"token":"tok-ana","tokenActualizacion":"rt-ana","expiraEn":3600,` +
	`"usuario":{"id":7,"nombreUsuario":"ana","email":"ana@innoad.test","rol":{"nombre":"USUARIO"}}}}`

func examplePlatform() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/auth/login" {
			_, _ = io.WriteString(w, exampleLogin)
			return
		}
		_, _ = io.WriteString(w, `{"exitoso":true}`)
	}))
}

func ExampleNew() {
	srv := examplePlatform()
	defer srv.Close()

	cfg := adsession.DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api"

	m, err := adsession.New().WithConfig(cfg).Build()
	if err != nil {
		fmt.Println("build:", err)
		return
	}
	defer m.Close()

	fmt.Println(m.Current().Status)
	// Output: signed_out
}

func ExampleManager_Login() {
	srv := examplePlatform()
	defer srv.Close()

	cfg := adsession.DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api"
	m, err := adsession.New().WithConfig(cfg).Build()
	if err != nil {
		fmt.Println("build:", err)
		return
	}
	defer m.Close()

	sess, err := m.Login(context.Background(), adsession.Credentials{Identifier: "ana", Password: "secret"}, false)
	if err != nil {
		fmt.Println("login:", err)
		return
	}
	fmt.Println(sess.Status, sess.User.Username, sess.Persistence)
	fmt.Println(m.HasPermission(permission.ViewCampaign), m.HasPermission(permission.ManageUsers))
	// Output:
	// authenticated ana ephemeral
	// true false
}

func ExampleManager_MetricsSnapshot() {
	srv := examplePlatform()
	defer srv.Close()

	cfg := adsession.DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api"
	m, err := adsession.New().WithConfig(cfg).Build()
	if err != nil {
		fmt.Println("build:", err)
		return
	}
	defer m.Close()

	_, _ = m.Login(context.Background(), adsession.Credentials{Identifier: "ana", Password: "secret"}, false)
	_ = m.Logout(context.Background())

	snap := m.MetricsSnapshot()
	fmt.Println(snap.Counters[adsession.MetricLoginSuccess], snap.Counters[adsession.MetricLogout])
	// Output: 1 1
}
