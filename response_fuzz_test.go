package adsession

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// FuzzNormalizeResponse feeds arbitrary bodies through the login and refresh
// normalizers. Failures must be classified errors, never panics.
func FuzzNormalizeResponse(f *testing.F) {
	tok := signedToken("7", testEpoch.Add(time.Hour))
	f.Add([]byte(`{"exitoso":true,"datos":{"token":"` + tok + `","tokenActualizacion":"rt","usuario":{"id":7,"rol":"ADMIN"}}}`))
	f.Add([]byte(`{"token":"a","refreshToken":"b","user":{"id":"7","role":{"name":"USUARIO"}},"expiresIn":"60"}`))
	f.Add([]byte(`{"exitoso":false,"mensaje":"Credenciales inválidas"}`))
	f.Add([]byte(`{"exitoso":true,"datos":null}`))
	f.Add([]byte(`{"token":"a","expiraEn":-1}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(``))

	n := testNormalizer()
	f.Fuzz(func(t *testing.T, body []byte) {
		for _, fn := range []func([]byte) (*authResult, error){n.login, n.refresh} {
			res, err := fn(body)
			if err != nil {
				var e *Error
				if !errors.As(err, &e) {
					t.Fatalf("unclassified error %T: %v", err, err)
				}
				continue
			}
			if res.AccessToken == "" {
				t.Fatal("accepted response without an access token")
			}
			if res.ExpiresIn < 0 {
				t.Fatalf("negative lifetime %v", res.ExpiresIn)
			}
		}
	})
}

func FuzzUserProfileDecode(f *testing.F) {
	f.Add([]byte(`{"id":7,"nombreUsuario":"ana","rol":{"nombre":"ADMIN","permisos":[{"nombre":"VER_CAMPANA"}]}}`))
	f.Add([]byte(`{"id":"x","username":"bo","role":"tecnico","permissions":["VER_PANTALLA"]}`))
	f.Add([]byte(`{"rol":12}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		var p UserProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		out, err := json.Marshal(&p)
		if err != nil {
			t.Fatalf("re-encode decoded profile: %v", err)
		}
		var again UserProfile
		if err := json.Unmarshal(out, &again); err != nil {
			t.Fatalf("decode own encoding %s: %v", out, err)
		}
		if again.ID != p.ID || again.Role.Name != p.Role.Name {
			t.Fatalf("profile changed across round trip: %+v vs %+v", p, again)
		}
	})
}
