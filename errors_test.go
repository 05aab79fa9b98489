package netfetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
)

func TestFetchError(t *testing.T) {
	err := &FetchError{
		Type:    ErrorTypeTransport,
		Message: "connection refused",
	}

	expectedMsg := "TransportError: connection refused"
	if err.Error() != expectedMsg {
		t.Errorf("Expected '%s', got '%s'", expectedMsg, err.Error())
	}

	cause := errors.New("underlying error")
	errWithCause := &FetchError{
		Type:    ErrorTypeStatus,
		Message: "unexpected status 500",
		Cause:   cause,
	}

	expectedMsgWithCause := "StatusError: unexpected status 500 (underlying error)"
	if errWithCause.Error() != expectedMsgWithCause {
		t.Errorf("Expected '%s', got '%s'", expectedMsgWithCause, errWithCause.Error())
	}
}

func TestFetchErrorFormatting(t *testing.T) {
	testCases := []struct {
		err      *FetchError
		expected string
	}{
		{
			&FetchError{Type: "Simple", Message: "simple message"},
			"Simple: simple message",
		},
		{
			&FetchError{Type: "WithCause", Message: "with cause", Cause: errors.New("cause")},
			"WithCause: with cause (cause)",
		},
		{
			&FetchError{Type: ErrorTypeTimeout, Message: "late", RequestID: "req-1"},
			"[req-1] TimeoutError: late",
		},
		{
			&FetchError{Type: ErrorTypeTransport, Message: "down", Attempt: 3},
			"TransportError: down (attempt 3)",
		},
		{
			&FetchError{Type: "EmptyMessage", Message: ""},
			"EmptyMessage: ",
		},
	}

	for _, tc := range testCases {
		result := tc.err.Error()
		if result != tc.expected {
			t.Errorf("Error() = '%s', expected '%s'", result, tc.expected)
		}
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &FetchError{Type: "TestError", Message: "test message", Cause: cause}

	if err.Unwrap() != cause {
		t.Errorf("Expected unwrapped error to be %v, got %v", cause, err.Unwrap())
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}

	noCause := &FetchError{Type: "TestError", Message: "test message"}
	if noCause.Unwrap() != nil {
		t.Errorf("Expected unwrapped error to be nil, got %v", noCause.Unwrap())
	}
}

func TestFetchErrorNilReceiver(t *testing.T) {
	var err *FetchError

	if err.Error() != "<nil>" {
		t.Errorf("Nil error Error() should return <nil>, got '%s'", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("Nil error Unwrap() should return nil")
	}
	if err.Is(ErrTransport) {
		t.Error("Nil error should not match any sentinel")
	}
}

func TestFetchErrorIs(t *testing.T) {
	err := &FetchError{Type: ErrorTypeTransport, Message: "connection failed"}

	if !errors.Is(err, ErrTransport) {
		t.Error("Should match sentinel with same type")
	}

	if errors.Is(err, ErrStatus) {
		t.Error("Should not match sentinel with different type")
	}

	if errors.Is(err, errors.New("some error")) {
		t.Error("Should not match non-FetchError targets")
	}

	wrapped := fmt.Errorf("fetch failed: %w", err)
	if !errors.Is(wrapped, ErrTransport) {
		t.Error("Should match through fmt wrapping")
	}
}

func TestFetchErrorAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", &FetchError{Type: ErrorTypeStatus, StatusCode: 404})

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatal("Should be able to extract FetchError")
	}

	if fetchErr.StatusCode != 404 {
		t.Errorf("Expected StatusCode=404, got %d", fetchErr.StatusCode)
	}
}

func TestIsTransient(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"transport", &FetchError{Type: ErrorTypeTransport}, true},
		{"timeout", &FetchError{Type: ErrorTypeTimeout}, true},
		{"rate limit", &FetchError{Type: ErrorTypeRateLimit}, true},
		{"status 500", &FetchError{Type: ErrorTypeStatus, StatusCode: http.StatusInternalServerError}, true},
		{"status 503", &FetchError{Type: ErrorTypeStatus, StatusCode: http.StatusServiceUnavailable}, true},
		{"status 429", &FetchError{Type: ErrorTypeStatus, StatusCode: http.StatusTooManyRequests}, true},
		{"status 404", &FetchError{Type: ErrorTypeStatus, StatusCode: http.StatusNotFound}, false},
		{"decode", &FetchError{Type: ErrorTypeDecode}, false},
		{"validation", &FetchError{Type: ErrorTypeValidation}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.expected {
				t.Errorf("IsTransient() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

var _ net.Error = timeoutNetError{}

func TestIsTimeout(t *testing.T) {
	if !isTimeout(context.DeadlineExceeded) {
		t.Error("DeadlineExceeded should be a timeout")
	}
	if !isTimeout(fmt.Errorf("get: %w", timeoutNetError{})) {
		t.Error("net.Error with Timeout() should be a timeout")
	}
	if isTimeout(context.Canceled) {
		t.Error("Canceled should not be a timeout")
	}
	if isTimeout(errNetwork) {
		t.Error("plain error should not be a timeout")
	}
}
