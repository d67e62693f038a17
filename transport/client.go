package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxBodyBytes = 1 << 20

// LoginRequest is the login payload.
type LoginRequest struct {
	Identifier string `json:"nombreUsuarioOEmail"`
	Password   string `json:"contrasena"`
	Remember   bool   `json:"recordarme"`
}

type refreshRequest struct {
	RefreshToken string `json:"tokenActualizacion"`
}

// Config configures HTTPClient.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// HTTPClient talks to the platform auth API.
type HTTPClient struct {
	base      *url.URL
	http      *http.Client
	userAgent string
}

// New validates cfg and returns a client.
func New(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport: base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("transport: unsupported scheme %q", base.Scheme)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "adsession"
	}
	return &HTTPClient{base: base, http: hc, userAgent: ua}, nil
}

// Login posts credentials and returns the raw response body.
func (c *HTTPClient) Login(ctx context.Context, req LoginRequest) ([]byte, error) {
	return c.post(ctx, "/auth/login", "", req)
}

// Refresh exchanges a refresh token and returns the raw response body.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) ([]byte, error) {
	return c.post(ctx, "/auth/refresh", "", refreshRequest{RefreshToken: refreshToken})
}

// Logout notifies the server that accessToken is being discarded.
func (c *HTTPClient) Logout(ctx context.Context, accessToken string) error {
	_, err := c.post(ctx, "/auth/logout", accessToken, struct{}{})
	return err
}

// PostSecurityEvent forwards one audit event.
func (c *HTTPClient) PostSecurityEvent(ctx context.Context, accessToken string, event any) error {
	_, err := c.post(ctx, "/audit/security-event", accessToken, event)
	return err
}

func (c *HTTPClient) post(ctx context.Context, path, bearer string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("transport: encode %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: build %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &unavailableError{cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &unavailableError{cause: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &unavailableError{status: resp.StatusCode, message: ExtractMessage(data, resp.StatusCode)}
	case resp.StatusCode >= 400:
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: ExtractMessage(data, resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &unavailableError{status: resp.StatusCode, message: http.StatusText(resp.StatusCode)}
	}
	return data, nil
}
