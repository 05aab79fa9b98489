package netfetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ambiyansyah-risyal/netfetch/internal/inflight"
)

// CachedFetch returns the cached result for req while it is fresh.
// Otherwise it joins the in-flight call for the same fingerprint, or starts
// one. Only successes are cached; a failure reaches every joined caller and
// leaves the cache untouched.
//
// The underlying call is not tied to ctx: a caller whose ctx ends stops
// waiting and gets ctx.Err(), while the call completes for the others.
func (f *Fetcher) CachedFetch(ctx context.Context, req Request, options ...CallOption) (json.RawMessage, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	cfg := f.callConfig(options)
	method := req.method()
	endpoint := getEndpointFromURL(req.URL)
	requestID := f.requestID()

	key, err := f.keyFunc(req)
	if err != nil {
		return nil, f.newError(ErrorTypeValidation, "cannot derive cache key", err, requestID, req)
	}

	if f.store.Len() > f.store.Capacity() {
		removed := f.store.Cleanup(cfg.cacheDuration)
		f.metrics.RecordCacheEvictions(removed)
		f.metrics.RecordCacheSize(f.store.Len())
		if f.debugEnabled(f.debug.LogCache) {
			f.logger.Debug("Cache cleanup", "requestID", requestID, "removed", removed, "maxAge", cfg.cacheDuration)
		}
	}

	if !cfg.forceRefresh {
		if entry, found := f.store.Get(key); found && entry.Fresh(f.clock.Now(), cfg.cacheDuration) {
			return f.cacheHit(entry, method, endpoint, requestID, key), nil
		}
	}

	// acquire re-checks freshness under the registration lock; a call may
	// have completed since the read above.
	entry, call, owner := f.store.acquire(key, inflight.New[json.RawMessage](), f.clock.Now(), cfg.cacheDuration, cfg.forceRefresh)
	if entry != nil {
		return f.cacheHit(entry, method, endpoint, requestID, key), nil
	}
	if !cfg.forceRefresh {
		f.metrics.RecordCacheMiss(method, endpoint)
		if f.debugEnabled(f.debug.LogCache) {
			f.logger.Debug("Cache miss", "requestID", requestID, "cacheKey", key)
		}
	}

	if owner {
		go f.runCached(context.WithoutCancel(ctx), key, call, req, requestID)
	} else {
		f.metrics.RecordCoalesced(method, endpoint)
		if f.debugEnabled(f.debug.LogCache) {
			f.logger.Debug("Joined in-flight call", "requestID", requestID, "cacheKey", key, "waiters", call.Waiters())
		}
	}

	val, err := call.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(val), nil
}

func (f *Fetcher) cacheHit(entry *Entry, method, endpoint, requestID, key string) json.RawMessage {
	f.metrics.RecordCacheHit(method, endpoint)
	if f.debugEnabled(f.debug.LogCache) {
		f.logger.Debug("Cache hit", "requestID", requestID, "cacheKey", key)
	}
	return bytes.Clone(entry.Value)
}

// runCached performs the owned underlying call, settles the store and then
// resolves call, in that order.
func (f *Fetcher) runCached(ctx context.Context, key string, call *PendingCall, req Request, requestID string) {
	defer func() {
		if r := recover(); r != nil {
			f.store.release(key, call, nil)
			call.Resolve(nil, f.newError(ErrorTypeTransport, "transport panicked", fmt.Errorf("%v", r), requestID, req))
		}
	}()

	val, err := f.send(ctx, req, requestID)
	if err != nil {
		f.store.release(key, call, nil)
		if f.debugEnabled(f.debug.LogCache) {
			f.logger.Warn("Upstream call failed, nothing cached", "requestID", requestID, "cacheKey", key, "error", err.Error())
		}
		call.Resolve(nil, err)
		return
	}

	if f.store.release(key, call, &Entry{Value: val, Timestamp: f.clock.Now()}) {
		f.metrics.RecordCacheSize(f.store.Len())
		if f.debugEnabled(f.debug.LogCache) {
			f.logger.Debug("Response cached", "requestID", requestID, "cacheKey", key)
		}
	}
	call.Resolve(val, nil)
}
