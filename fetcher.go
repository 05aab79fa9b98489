package netfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ambiyansyah-risyal/netfetch/internal/backoff"
)

// Defaults applied by New.
const (
	DefaultCacheDuration  = 5 * time.Second
	DefaultRetryCount     = 3
	DefaultAttemptTimeout = 5 * time.Second
)

// Fetcher issues upstream calls through a cache-and-coalesce path
// (CachedFetch) or a retry path (RetryingFetch). It is safe for concurrent
// use.
type Fetcher struct {
	httpClient     *http.Client
	middleware     []Middleware
	transport      Transport
	store          *Store
	capacity       int
	keyFunc        KeyFunc
	clock          Clock
	sleeper        Sleeper
	backoff        backoff.Strategy
	backoffBase    time.Duration
	cacheDuration  time.Duration
	retryCount     int
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	metrics        *MetricsCollector
	debug          *DebugConfig
	logger         Logger

	validationError error
}

// New constructs a Fetcher using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		middleware:     []Middleware{},
		capacity:       DefaultCapacity,
		keyFunc:        DefaultKeyFunc,
		clock:          SystemClock{},
		sleeper:        SystemSleeper{},
		backoffBase:    backoff.DefaultBase,
		cacheDuration:  DefaultCacheDuration,
		retryCount:     DefaultRetryCount,
		attemptTimeout: DefaultAttemptTimeout,
		debug:          DefaultDebugConfig(),
	}

	for _, option := range options {
		option(f)
	}

	if f.debug == nil {
		f.debug = DefaultDebugConfig()
	}
	if f.transport == nil {
		f.transport = NewHTTPTransport(f.httpClient, f.middleware...)
	}
	if f.store == nil {
		f.store = NewStore(WithStoreCapacity(f.capacity), WithStoreClock(f.clock))
	}
	f.backoff = backoff.Exponential{Base: f.backoffBase, Multiplier: 2}

	if err := f.ValidateConfiguration(); err != nil {
		f.validationError = err
	}

	return f
}

// Store returns the cache and in-flight registry the Fetcher writes to.
func (f *Fetcher) Store() *Store {
	return f.store
}

// IsValid reports whether configuration validation passed at construction.
func (f *Fetcher) IsValid() bool {
	return f.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (f *Fetcher) ValidationError() error {
	return f.validationError
}

func (f *Fetcher) callConfig(options []CallOption) callConfig {
	cfg := callConfig{
		cacheDuration:  f.cacheDuration,
		retryCount:     f.retryCount,
		attemptTimeout: f.attemptTimeout,
	}
	for _, option := range options {
		option(&cfg)
	}

	if cfg.cacheDuration <= 0 {
		cfg.cacheDuration = f.cacheDuration
	}
	if cfg.retryCount < 0 {
		cfg.retryCount = 0
	}
	if cfg.attemptTimeout <= 0 {
		cfg.attemptTimeout = f.attemptTimeout
	}
	return cfg
}

// send performs one underlying call and classifies the outcome. Only a 2xx
// response with a JSON body is a success.
func (f *Fetcher) send(ctx context.Context, req Request, requestID string) (json.RawMessage, error) {
	start := time.Now()
	method := req.method()
	endpoint := getEndpointFromURL(req.URL)

	f.metrics.RecordRequestStart(method, endpoint)
	defer f.metrics.RecordRequestEnd(method, endpoint)

	if f.debugEnabled(f.debug.LogRequests) {
		f.logger.Debug("Sending request", "requestID", requestID, "method", method, "url", req.URL, "endpoint", endpoint)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			f.metrics.RecordError(ErrorTypeRateLimit, method, endpoint)
			return nil, f.newError(ErrorTypeRateLimit, "rate limiter wait failed", err, requestID, req)
		}
	}

	resp, err := f.transport.Send(ctx, req)
	duration := time.Since(start)
	if err != nil {
		errorType := ErrorTypeTransport
		message := "request failed"
		if isTimeout(err) {
			errorType = ErrorTypeTimeout
			message = "request timed out"
		}
		f.metrics.RecordRequest(method, endpoint, 0, duration)
		f.metrics.RecordError(errorType, method, endpoint)
		return nil, f.newError(errorType, message, err, requestID, req)
	}

	f.metrics.RecordRequest(method, endpoint, resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.metrics.RecordError(ErrorTypeStatus, method, endpoint)
		fetchErr := f.newError(ErrorTypeStatus, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil, requestID, req)
		fetchErr.StatusCode = resp.StatusCode
		return nil, fetchErr
	}

	if !json.Valid(resp.Body) {
		f.metrics.RecordError(ErrorTypeDecode, method, endpoint)
		fetchErr := f.newError(ErrorTypeDecode, "response body is not valid JSON", nil, requestID, req)
		fetchErr.StatusCode = resp.StatusCode
		return nil, fetchErr
	}

	if f.debugEnabled(f.debug.LogRequests) {
		f.logger.Debug("Request completed", "requestID", requestID, "statusCode", resp.StatusCode, "duration", duration)
	}

	return json.RawMessage(resp.Body), nil
}

func (f *Fetcher) newError(errorType, message string, cause error, requestID string, req Request) *FetchError {
	return &FetchError{
		Type:      errorType,
		Message:   message,
		Cause:     cause,
		RequestID: requestID,
		Method:    req.method(),
		URL:       req.URL,
		Timestamp: time.Now(),
	}
}

func (f *Fetcher) requestID() string {
	if f.debug != nil && f.debug.Enabled && f.debug.RequestIDGen != nil {
		return f.debug.RequestIDGen()
	}
	return ""
}

func (f *Fetcher) debugEnabled(category bool) bool {
	return f.debug != nil && f.debug.Enabled && category && f.logger != nil
}
