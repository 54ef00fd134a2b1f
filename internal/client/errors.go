package client

import (
	"errors"
	"fmt"
	"net/http"

	"budget/internal/core"
)

// Kind classifies why a backend call failed
type Kind string

const (
	KindTransport Kind = "transport" // no response: refused, timeout, DNS
	KindStatus    Kind = "status"    // non-2xx response
	KindDecode    Kind = "decode"    // 2xx with a body we could not read
)

// Error is returned by every Client method on failure
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	// Message is the backend's {"message": ...} text when present
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Message != "" {
			return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
		}
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets a 404 match core.ErrNotFound
func (e *Error) Is(target error) bool {
	return target == core.ErrNotFound && e.Kind == KindStatus && e.StatusCode == http.StatusNotFound
}

// AsError extracts a *Error from err
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
