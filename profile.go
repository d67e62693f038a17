package adsession

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Role is the role attached to a profile.
type Role struct {
	Name        string   `json:"nombre"`
	Permissions []string `json:"permisos,omitempty"`
	Level       int      `json:"nivel,omitempty"`
}

// UserProfile is the cached user record. It is stored in the vault in its
// own JSON form and decoded from server responses through UnmarshalJSON,
// which accepts both the current and the legacy field names.
type UserProfile struct {
	ID          string   `json:"id"`
	Username    string   `json:"nombreUsuario"`
	Email       string   `json:"email"`
	DisplayName string   `json:"nombreCompleto,omitempty"`
	Role        Role     `json:"rol"`
	Permissions []string `json:"permisos,omitempty"`
}

// Name returns the display name, falling back to the username.
func (p *UserProfile) Name() string {
	if p == nil {
		return ""
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

func (p *UserProfile) clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Role.Permissions = append([]string(nil), p.Role.Permissions...)
	c.Permissions = append([]string(nil), p.Permissions...)
	return &c
}

type wireProfile struct {
	ID          json.RawMessage `json:"id"`
	Username    string          `json:"nombreUsuario"`
	UsernameEN  string          `json:"username"`
	Email       string          `json:"email"`
	Correo      string          `json:"correo"`
	DisplayName string          `json:"nombreCompleto"`
	DisplayEN   string          `json:"displayName"`
	FullName    string          `json:"fullName"`
	Rol         json.RawMessage `json:"rol"`
	Role        json.RawMessage `json:"role"`
	Permisos    json.RawMessage `json:"permisos"`
	Permissions json.RawMessage `json:"permissions"`
}

// UnmarshalJSON accepts ids as numbers or strings, the role as a bare name
// or an object, and permissions as names or {"nombre": ...} objects.
func (p *UserProfile) UnmarshalJSON(data []byte) error {
	var w wireProfile
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	role, err := decodeRole(pickRaw(w.Rol, w.Role))
	if err != nil {
		return err
	}
	perms, err := decodeNames(pickRaw(w.Permisos, w.Permissions))
	if err != nil {
		return err
	}

	*p = UserProfile{
		ID:          decodeID(w.ID),
		Username:    firstNonEmpty(w.Username, w.UsernameEN),
		Email:       firstNonEmpty(w.Email, w.Correo),
		DisplayName: firstNonEmpty(w.DisplayName, w.DisplayEN, w.FullName),
		Role:        role,
		Permissions: perms,
	}
	return nil
}

func decodeID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}

func decodeRole(raw json.RawMessage) (Role, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Role{}, nil
	}
	var name string
	if json.Unmarshal(raw, &name) == nil {
		return Role{Name: name}, nil
	}

	var obj struct {
		Nombre      string          `json:"nombre"`
		Name        string          `json:"name"`
		Permisos    json.RawMessage `json:"permisos"`
		Permissions json.RawMessage `json:"permissions"`
		Nivel       *int            `json:"nivel"`
		Level       *int            `json:"level"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Role{}, err
	}
	perms, err := decodeNames(pickRaw(obj.Permisos, obj.Permissions))
	if err != nil {
		return Role{}, err
	}
	r := Role{Name: firstNonEmpty(obj.Nombre, obj.Name), Permissions: perms}
	switch {
	case obj.Nivel != nil:
		r.Level = *obj.Nivel
	case obj.Level != nil:
		r.Level = *obj.Level
	}
	return r, nil
}

func decodeNames(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj struct {
			Nombre string `json:"nombre"`
			Name   string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, err
		}
		if n := firstNonEmpty(obj.Nombre, obj.Name); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

func pickRaw(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if t := bytes.TrimSpace(v); len(t) > 0 && string(t) != "null" {
			return t
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
