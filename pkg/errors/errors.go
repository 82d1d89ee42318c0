package errors

import (
	"errors"
	"fmt"
	"time"
)

// Type classifies errors the way the export jobs react to them
type Type string

const (
	// TypeConfig is a missing or invalid credential/identifier. Fatal,
	// detected before any network activity.
	TypeConfig Type = "config"

	// TypeThrottle is a server-directed wait. Always recoverable: the
	// caller sleeps RetryAfter and re-issues the identical request.
	TypeThrottle Type = "throttle"

	// TypeAPI is an ok:false rejection from the API for a non-rate-limit
	// reason (bad scope, unknown channel). The unit is abandoned.
	TypeAPI Type = "api"

	// TypeTransport is a network/connection failure. The unit is
	// abandoned, same as TypeAPI.
	TypeTransport Type = "transport"

	// TypePersistence is unreadable resume/result state. Treated as
	// "start fresh", never fatal.
	TypePersistence Type = "persistence"

	// TypeParsing is a malformed API response body.
	TypeParsing Type = "parsing"
)

// Error is a classified export error
type Error struct {
	Type    Type
	Message string
	Code    int // HTTP status, 0 when not applicable

	// RetryAfter is the server-directed wait, set only for TypeThrottle.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a classified error
func New(t Type, message string, code int) *Error {
	return &Error{Type: t, Message: message, Code: code}
}

// Throttled creates a throttle error carrying the server-directed wait
func Throttled(wait time.Duration, code int) *Error {
	return &Error{
		Type:       TypeThrottle,
		Message:    fmt.Sprintf("rate limited, retry after %s", wait),
		Code:       code,
		RetryAfter: wait,
	}
}

// ThrottleWait reports whether err is a throttle condition and, if so,
// how long the server asked us to wait.
func ThrottleWait(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.Type == TypeThrottle {
		return e.RetryAfter, true
	}
	return 0, false
}

// IsAbandonable reports whether the error means "log, abandon this unit,
// keep the partial result, continue the job".
func IsAbandonable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Type {
	case TypeAPI, TypeTransport, TypeParsing:
		return true
	default:
		return false
	}
}

// IsType reports whether err carries the given classification
func IsType(err error, t Type) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}
