package netfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RetryingFetch performs req, retrying failed attempts with exponential
// backoff. Each attempt gets its own deadline; exceeding it cancels only
// that attempt. When the retry budget is spent the last attempt's error is
// returned as is.
//
// With retry count R there are at most R+1 attempts and R calls to the
// OnRetry observer, made before each backoff delay.
func (f *Fetcher) RetryingFetch(ctx context.Context, req Request, options ...CallOption) (json.RawMessage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	cfg := f.callConfig(options)
	method := req.method()
	endpoint := getEndpointFromURL(req.URL)
	requestID := f.requestID()

	attempts := 0
	for {
		val, err := f.attempt(ctx, req, cfg.attemptTimeout, requestID)
		if err == nil {
			return val, nil
		}

		attempts++
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			fetchErr.Attempt = attempts
		}

		if attempts > cfg.retryCount {
			if f.debugEnabled(f.debug.LogRetries) {
				f.logger.Warn("Retries exhausted", "requestID", requestID, "attempts", attempts, "endpoint", endpoint, "error", err.Error())
			}
			return nil, err
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if cfg.onRetry != nil {
			cfg.onRetry(err, attempts)
		}
		f.metrics.RecordRetry(method, endpoint, attempts)

		delay := f.backoff.Delay(attempts)
		if f.debugEnabled(f.debug.LogRetries) {
			f.logger.Info("Scheduling retry", "requestID", requestID, "attempt", attempts, "backoff", delay, "endpoint", endpoint)
		}

		if err := f.sleeper.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt runs one call under its own deadline. A success that arrives
// after the deadline still counts as a timeout.
func (f *Fetcher) attempt(ctx context.Context, req Request, timeout time.Duration, requestID string) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	val, err := f.send(attemptCtx, req, requestID)

	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && fetchErr.Type == ErrorTypeTimeout {
			return nil, err
		}
		return nil, f.newError(ErrorTypeTimeout, fmt.Sprintf("attempt exceeded %s deadline", timeout), err, requestID, req)
	}

	return val, err
}
