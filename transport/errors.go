package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnavailable covers connection failures, timeouts and 5xx responses.
var ErrUnavailable = errors.New("auth service unavailable")

// StatusError is a 4xx answer from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth service returned %d: %s", e.StatusCode, e.Message)
}

// unavailableError keeps the status and message of a 5xx answer while
// matching ErrUnavailable.
type unavailableError struct {
	status  int
	message string
	cause   error
}

func (e *unavailableError) Error() string {
	switch {
	case e.cause != nil:
		return fmt.Sprintf("%v: %v", ErrUnavailable, e.cause)
	case e.status != 0:
		return fmt.Sprintf("%v: status %d: %s", ErrUnavailable, e.status, e.message)
	}
	return ErrUnavailable.Error()
}

func (e *unavailableError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrUnavailable, e.cause}
	}
	return []error{ErrUnavailable}
}

// Message returns the server-provided message carried by err, or "".
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	var ue *unavailableError
	if errors.As(err, &ue) {
		return ue.message
	}
	return ""
}

// ExtractMessage finds the human-readable message in an error body. It
// understands {"mensaje"}, {"message"}, {"error": "..."},
// {"error": {"mensaje"|"message"}} and {"errores": [...]}.
func ExtractMessage(body []byte, status int) string {
	var probe struct {
		Mensaje string          `json:"mensaje"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Errores []string        `json:"errores"`
	}
	if len(body) > 0 && json.Unmarshal(body, &probe) == nil {
		if msg := firstNonEmpty(probe.Mensaje, probe.Message, nestedMessage(probe.Error)); msg != "" {
			return msg
		}
		for _, e := range probe.Errores {
			if strings.TrimSpace(e) != "" {
				return e
			}
		}
	}
	if status != 0 {
		return http.StatusText(status)
	}
	return ""
}

func nestedMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Mensaje string `json:"mensaje"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return firstNonEmpty(obj.Mensaje, obj.Message)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
