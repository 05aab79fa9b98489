package netfetch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request describes one logical upstream call. It is treated as immutable
// once handed to the Fetcher.
type Request struct {
	// Method defaults to GET.
	Method string
	URL    string
	Header map[string]string
	// Body is encoded as JSON. A nil Body sends no payload.
	Body any
}

// Response is what a Transport returns for a completed exchange,
// regardless of status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport performs the underlying exchange.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware wraps the HTTP round trip performed by HTTPTransport.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// OnRetryFunc observes a failed attempt right before the backoff delay.
// attempt is the 1-based number of the retry about to be made.
type OnRetryFunc func(err error, attempt int)

// Option configures a Fetcher.
type Option func(*Fetcher)

// CallOption configures a single CachedFetch or RetryingFetch call.
// Options that do not apply to an operation are ignored by it.
type CallOption func(*callConfig)

type callConfig struct {
	cacheDuration  time.Duration
	forceRefresh   bool
	retryCount     int
	attemptTimeout time.Duration
	onRetry        OnRetryFunc
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r Request) validate() error {
	if r.URL == "" {
		return &FetchError{Type: ErrorTypeValidation, Message: "request URL is empty"}
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return &FetchError{Type: ErrorTypeValidation, Message: "request URL is invalid", Cause: err, URL: r.URL}
	}
	if u.Scheme == "" || u.Host == "" {
		return &FetchError{Type: ErrorTypeValidation, Message: "request URL must be absolute", URL: r.URL}
	}
	return nil
}

func getEndpointFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)

	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
