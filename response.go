package adsession

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/innoad/adsession/jwt"
)

// authResult is the canonical form of a login or refresh response.
type authResult struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
	ExpiresIn    time.Duration
}

type envelope struct {
	Exitoso *bool           `json:"exitoso"`
	Mensaje string          `json:"mensaje"`
	Datos   json.RawMessage `json:"datos"`
}

// tokenFields covers both the envelope's "datos" object and the flat legacy
// body. The two shapes use different key names for the same values.
type tokenFields struct {
	Token              string          `json:"token"`
	AccessToken        string          `json:"accessToken"`
	TokenActualizacion string          `json:"tokenActualizacion"`
	RefreshToken       string          `json:"refreshToken"`
	Usuario            json.RawMessage `json:"usuario"`
	User               json.RawMessage `json:"user"`
	ExpiraEn           json.RawMessage `json:"expiraEn"`
	ExpiresIn          json.RawMessage `json:"expiresIn"`
}

// responseNormalizer is a compatibility shim for the two response contracts
// deployed servers still speak. New fields belong in the envelope shape only.
type responseNormalizer struct {
	decoder *jwt.Decoder
	now     func() time.Time
}

// login requires a token, a refresh token and a user.
func (n responseNormalizer) login(body []byte) (*authResult, error) {
	res, err := n.normalize(body)
	if err != nil {
		return nil, err
	}
	if res.RefreshToken == "" {
		return nil, newError(ErrInvalidResponseFormat, "", fmt.Errorf("missing refresh token"))
	}
	if res.User == nil {
		return nil, newError(ErrInvalidResponseFormat, "", fmt.Errorf("missing user"))
	}
	return res, nil
}

// refresh requires only a token; the refresh token and user are optional.
func (n responseNormalizer) refresh(body []byte) (*authResult, error) {
	return n.normalize(body)
}

func (n responseNormalizer) normalize(body []byte) (*authResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, newError(ErrInvalidResponseFormat, "", fmt.Errorf("body is not a JSON object"))
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, newError(ErrInvalidResponseFormat, "", err)
	}

	payload := trimmed
	if env.Exitoso != nil {
		if !*env.Exitoso {
			return nil, newError(ErrInvalidCredentials, env.Mensaje, nil)
		}
		if len(pickRaw(env.Datos)) == 0 {
			return nil, newError(ErrInvalidResponseFormat, env.Mensaje, fmt.Errorf("envelope without datos"))
		}
		payload = env.Datos
	}

	var f tokenFields
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, newError(ErrInvalidResponseFormat, "", err)
	}

	res := &authResult{
		AccessToken:  firstNonEmpty(f.Token, f.AccessToken),
		RefreshToken: firstNonEmpty(f.TokenActualizacion, f.RefreshToken),
	}
	if res.AccessToken == "" {
		return nil, newError(ErrInvalidResponseFormat, "", fmt.Errorf("missing token"))
	}

	if raw := pickRaw(f.Usuario, f.User); raw != nil {
		var u UserProfile
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, newError(ErrInvalidResponseFormat, "", fmt.Errorf("decode user: %w", err))
		}
		res.User = &u
	}

	expiresIn, err := n.expiresIn(pickRaw(f.ExpiraEn, f.ExpiresIn), res.AccessToken)
	if err != nil {
		return nil, newError(ErrInvalidResponseFormat, "", err)
	}
	res.ExpiresIn = expiresIn
	return res, nil
}

const maxLifetimeSeconds = float64(math.MaxInt64 / int64(time.Second))

// expiresIn reads a number of seconds (number or numeric string) and falls
// back to the token's exp claim.
func (n responseNormalizer) expiresIn(raw json.RawMessage, token string) (time.Duration, error) {
	if raw != nil {
		var num json.Number
		if err := json.Unmarshal(raw, &num); err != nil {
			var s string
			if json.Unmarshal(raw, &s) != nil {
				return 0, fmt.Errorf("expiresIn is not a number")
			}
			num = json.Number(s)
		}
		secs, err := strconv.ParseFloat(num.String(), 64)
		if err != nil || !(secs > 0) || secs > maxLifetimeSeconds {
			return 0, fmt.Errorf("invalid expiresIn %q", num.String())
		}
		return time.Duration(secs * float64(time.Second)), nil
	}

	exp, err := n.decoder.ExpiresAt(token)
	if err != nil {
		return 0, fmt.Errorf("no expiresIn and no usable exp claim: %w", err)
	}
	d := exp.Sub(n.now())
	if d <= 0 {
		return 0, fmt.Errorf("token already expired")
	}
	return d, nil
}
