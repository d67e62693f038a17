package transport

import (
	"net/http"
	"strings"
)

// PublicPrefixes are request paths that never carry the session token.
var PublicPrefixes = []string{"/auth/", "/autenticacion/", "/actuator/health", "/public/"}

// BearerTransport attaches the current access token to outgoing requests.
type BearerTransport struct {
	Base   http.RoundTripper
	Token  func() string
	Public []string
}

// NewBearerTransport wraps base (http.DefaultTransport when nil).
func NewBearerTransport(base http.RoundTripper, token func() string) *BearerTransport {
	return &BearerTransport{Base: base, Token: token, Public: PublicPrefixes}
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Token == nil || req.Header.Get("Authorization") != "" || t.isPublic(req.URL.Path) {
		return base.RoundTrip(req)
	}
	token := t.Token()
	if token == "" {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(clone)
}

func (t *BearerTransport) isPublic(path string) bool {
	for _, p := range t.Public {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
