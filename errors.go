package netfetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Error types carried by FetchError.Type.
const (
	ErrorTypeTransport  = "TransportError"
	ErrorTypeStatus     = "StatusError"
	ErrorTypeDecode     = "DecodeError"
	ErrorTypeTimeout    = "TimeoutError"
	ErrorTypeRateLimit  = "RateLimitError"
	ErrorTypeValidation = "ValidationError"
)

// Sentinel errors for matching with errors.Is. A *FetchError matches the
// sentinel of the same Type.
var (
	// ErrTransport matches failures to complete the exchange at all.
	ErrTransport = &FetchError{Type: ErrorTypeTransport, Message: "transport failed"}

	// ErrStatus matches responses outside the 2xx range.
	ErrStatus = &FetchError{Type: ErrorTypeStatus, Message: "unexpected status"}

	// ErrDecode matches response bodies that are not valid JSON.
	ErrDecode = &FetchError{Type: ErrorTypeDecode, Message: "malformed response body"}

	// ErrTimeout matches an attempt that outlived its deadline.
	ErrTimeout = &FetchError{Type: ErrorTypeTimeout, Message: "attempt deadline exceeded"}

	// ErrRateLimited matches a call denied by the rate limiter.
	ErrRateLimited = &FetchError{Type: ErrorTypeRateLimit, Message: "rate limited"}

	// ErrInvalidRequest matches malformed requests and configuration.
	ErrInvalidRequest = &FetchError{Type: ErrorTypeValidation, Message: "invalid request"}
)

// FetchError describes a failed call. Every coalesced caller of one
// underlying call receives the same *FetchError.
type FetchError struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	Method     string
	URL        string
	StatusCode int
	Attempt    int
	Timestamp  time.Time
}

// Error implements error interface.
func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d)", msg, e.Attempt)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *FetchError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*FetchError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, rate limiting, 5xx and 429 responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}

	switch fetchErr.Type {
	case ErrorTypeTransport, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	case ErrorTypeStatus:
		return fetchErr.StatusCode == http.StatusTooManyRequests || fetchErr.StatusCode >= 500
	default:
		return false
	}
}

// isTimeout reports whether a transport error was caused by a deadline,
// either the context's or the HTTP client's own.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
