package netfetch

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// WithTransport replaces the HTTP transport entirely. HTTP client and
// middleware options have no effect when it is set.
func WithTransport(transport Transport) Option {
	return func(f *Fetcher) {
		f.transport = transport
	}
}

// WithHTTPClient sets the client used by the default transport
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = client
	}
}

// WithMiddleware adds middleware to the default transport
func WithMiddleware(middleware ...Middleware) Option {
	return func(f *Fetcher) {
		f.middleware = append(f.middleware, middleware...)
	}
}

// WithStore shares an existing Store. WithCapacity does not apply to it.
func WithStore(store *Store) Option {
	return func(f *Fetcher) {
		f.store = store
	}
}

// WithCapacity sets the entry count that triggers a cleanup pass on the
// Store the Fetcher creates.
func WithCapacity(n int) Option {
	return func(f *Fetcher) {
		f.capacity = n
	}
}

// WithKeyFunc sets a custom fingerprint function
func WithKeyFunc(fn KeyFunc) Option {
	return func(f *Fetcher) {
		f.keyFunc = fn
	}
}

// WithClock sets the time source for freshness checks
func WithClock(clock Clock) Option {
	return func(f *Fetcher) {
		f.clock = clock
	}
}

// WithSleeper sets the delay primitive used between retries
func WithSleeper(sleeper Sleeper) Option {
	return func(f *Fetcher) {
		f.sleeper = sleeper
	}
}

// WithBackoffBase sets the unit of the 2^attempt backoff schedule
func WithBackoffBase(d time.Duration) Option {
	return func(f *Fetcher) {
		f.backoffBase = d
	}
}

// WithDefaultCacheDuration sets the freshness window used when a call does
// not pass WithCacheDuration.
func WithDefaultCacheDuration(d time.Duration) Option {
	return func(f *Fetcher) {
		f.cacheDuration = d
	}
}

// WithDefaultRetryCount sets the retry budget used when a call does not
// pass WithRetryCount.
func WithDefaultRetryCount(n int) Option {
	return func(f *Fetcher) {
		f.retryCount = n
	}
}

// WithDefaultAttemptTimeout sets the per-attempt deadline used when a call
// does not pass WithAttemptTimeout.
func WithDefaultAttemptTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.attemptTimeout = d
	}
}

// WithRateLimit makes every underlying call wait for a token from a shared
// limiter allowing limit calls per second with the given burst.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(f *Fetcher) {
		f.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(f *Fetcher) {
		f.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(f *Fetcher) {
		f.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(f *Fetcher) {
		if f.debug == nil {
			f.debug = DefaultDebugConfig()
		}
		f.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(f *Fetcher) {
		f.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a console logger
func WithSimpleLogger() Option {
	return func(f *Fetcher) {
		if f.debug == nil {
			f.debug = DefaultDebugConfig()
		}
		f.debug.Enabled = true
		f.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(f *Fetcher) {
		if f.debug == nil {
			f.debug = DefaultDebugConfig()
		}
		f.debug.RequestIDGen = gen
	}
}

// WithCacheDuration sets the freshness window for one CachedFetch call.
// Non-positive values fall back to the Fetcher default.
func WithCacheDuration(d time.Duration) CallOption {
	return func(c *callConfig) {
		c.cacheDuration = d
	}
}

// WithForceRefresh skips the cache read for one CachedFetch call; a
// success is still written through.
func WithForceRefresh() CallOption {
	return func(c *callConfig) {
		c.forceRefresh = true
	}
}

// WithRetryCount sets how many retries follow the first attempt of one
// RetryingFetch call. Negative values mean no retries.
func WithRetryCount(n int) CallOption {
	return func(c *callConfig) {
		c.retryCount = n
	}
}

// WithAttemptTimeout sets the per-attempt deadline for one RetryingFetch
// call. Non-positive values fall back to the Fetcher default.
func WithAttemptTimeout(d time.Duration) CallOption {
	return func(c *callConfig) {
		c.attemptTimeout = d
	}
}

// WithOnRetry registers an observer invoked before each retry delay.
func WithOnRetry(fn OnRetryFunc) CallOption {
	return func(c *callConfig) {
		c.onRetry = fn
	}
}

// ValidateConfiguration validates the fetcher configuration and returns an error if invalid
func (f *Fetcher) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, f.validateCacheConfig()...)
	errors = append(errors, f.validateRetryConfig()...)
	errors = append(errors, f.validateDebugConfig()...)
	errors = append(errors, f.validateTransportConfig()...)
	errors = append(errors, f.validateExtremeValues()...)

	if len(errors) > 0 {
		return &FetchError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

func (f *Fetcher) validateCacheConfig() []string {
	var errors []string

	if f.cacheDuration <= 0 {
		errors = append(errors, "cacheDuration must be positive")
	}
	if f.store == nil && f.capacity <= 0 {
		errors = append(errors, "capacity must be positive")
	}
	if f.keyFunc == nil {
		errors = append(errors, "key function cannot be nil")
	}
	if f.clock == nil {
		errors = append(errors, "clock cannot be nil")
	}

	return errors
}

func (f *Fetcher) validateRetryConfig() []string {
	var errors []string

	if f.retryCount < 0 {
		errors = append(errors, "retryCount must be non-negative")
	}
	if f.attemptTimeout <= 0 {
		errors = append(errors, "attemptTimeout must be positive")
	}
	if f.backoffBase <= 0 {
		errors = append(errors, "backoffBase must be positive")
	}
	if f.sleeper == nil {
		errors = append(errors, "sleeper cannot be nil")
	}

	return errors
}

func (f *Fetcher) validateDebugConfig() []string {
	var errors []string

	if f.debug != nil && f.debug.Enabled {
		if f.debug.RequestIDGen == nil {
			errors = append(errors, "debug RequestIDGen must be set when debug is enabled")
		}
		if f.logger == nil {
			errors = append(errors, "logger must be set when debug is enabled")
		}
	}

	return errors
}

func (f *Fetcher) validateTransportConfig() []string {
	var errors []string

	if f.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}
	for i, middleware := range f.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}

	return errors
}

func (f *Fetcher) validateExtremeValues() []string {
	var errors []string

	if f.retryCount > 100 {
		errors = append(errors, "retryCount > 100 may cause excessive resource usage")
	}
	if f.attemptTimeout > 10*time.Minute {
		errors = append(errors, "attemptTimeout > 10m may cause requests to hang for too long")
	}
	if f.cacheDuration > 24*time.Hour {
		errors = append(errors, "cacheDuration > 24h may cause stale data issues")
	}

	return errors
}
