package services

import (
	"encoding/json"
	"fmt"
	"strings"
)

var (
	// ErrInvalidCredentials is returned when /auth/login or /auth/register answers 401.
	// It never triggers a session refresh.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// ErrSessionExpired is returned when the session could not be renewed:
	// the refresh call failed, or a request was rejected again after a successful refresh.
	ErrSessionExpired = fmt.Errorf("session expired")

	// ErrNetworkFailure marks transport level failures (connection refused, DNS, TLS, ...).
	ErrNetworkFailure = fmt.Errorf("network failure")
)

// APIError is any non-2xx response other than a recoverable 401.
type APIError struct {
	Status int
	Detail string
	Body   any // parsed JSON payload, or the raw text when the body isn't JSON
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Detail)
}

// NetworkError wraps a transport failure for a single request.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Method, e.Path, ErrNetworkFailure, e.Err)
}

// Unwrap exposes both [ErrNetworkFailure] and the underlying cause to [errors.Is].
func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetworkFailure, e.Err}
}

// newAPIError builds an [APIError] from a response, reading the message from "detail" or "message" like the web client does.
func newAPIError(resp *Response) *APIError {
	apiErr := &APIError{Status: resp.Status, Detail: "API Error"}
	if len(resp.Body) == 0 {
		return apiErr
	}

	var payload any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		apiErr.Body = strings.TrimSpace(string(resp.Body))
		return apiErr
	}
	apiErr.Body = payload

	if detail := errorDetail(payload); detail != "" {
		apiErr.Detail = detail
	}
	return apiErr
}

func errorDetail(payload any) string {
	m, ok := payload.(map[string]any)
	if !ok {
		return ""
	}

	for _, key := range []string{"detail", "message"} {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case nil:
		default:
			// FastAPI validation errors: a list of {loc, msg, type}
			if list, ok := v.([]any); ok {
				var msgs []string
				for _, item := range list {
					if entry, ok := item.(map[string]any); ok {
						if msg, ok := entry["msg"].(string); ok {
							msgs = append(msgs, msg)
						}
					}
				}
				if len(msgs) > 0 {
					return strings.Join(msgs, "; ")
				}
			}
			if data, err := json.Marshal(v); err == nil {
				return string(data)
			}
		}
	}
	return ""
}
