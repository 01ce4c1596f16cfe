package hubapi

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrSessionExpired is returned when a 401 could not be recovered by a refresh.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoSession is returned by socket URL builders without an access token.
	ErrNoSession = errors.New("no active session")
)

// APIError is a non-success response of the hub. Body holds the decoded JSON
// error payload, or an empty map when the payload was not JSON.
type APIError struct {
	Status int
	Body   map[string]interface{}
}

func (e *APIError) Error() string {
	if detail := e.Message(""); detail != "" {
		return fmt.Sprintf("hub api: status %d: %s", e.Status, detail)
	}
	return fmt.Sprintf("hub api: status %d", e.Status)
}

// Message derives a user facing message from the payload: "detail" first,
// then the first error of the email and password fields, then any other field.
func (e *APIError) Message(fallback string) string {
	if s, ok := e.Body["detail"].(string); ok && s != "" {
		return s
	}
	for _, key := range []string{"email", "password"} {
		if s := firstString(e.Body[key]); s != "" {
			return s
		}
	}
	keys := make([]string, 0, len(e.Body))
	for k := range e.Body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := firstString(e.Body[k]); s != "" {
			return s
		}
	}
	return fallback
}

func firstString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// ErrorMessage is Message for arbitrary errors.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message(fallback)
	}
	return fallback
}
