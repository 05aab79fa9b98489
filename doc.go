// Package netfetch is a small resilience layer over JSON HTTP calls:
//
//   - CachedFetch serves fresh cached results, coalesces concurrent
//     identical calls onto one upstream request, and caches only successes
//   - RetryingFetch bounds each attempt with a deadline and retries with
//     unjittered exponential backoff (2^n x 100ms), reporting each retry to
//     an observer
//
// Both share a Store: the cache entries (in memory by default, or any
// EntryBackend such as the Redis one in package redisstore) plus the
// registry of in-flight calls. A Store is created once and handed to every
// Fetcher that should share it; Reset clears it between tests.
//
// Typical usage:
//
//	fetcher := netfetch.New(
//	    netfetch.WithDefaultCacheDuration(5*time.Second),
//	    netfetch.WithMetrics(),
//	)
//	data, err := fetcher.CachedFetch(ctx, netfetch.Request{URL: "https://api.example.com/data"})
//
//	user, err := netfetch.RetryingFetchJSON[User](ctx, fetcher,
//	    netfetch.Request{URL: "https://api.example.com/users/1"},
//	    netfetch.WithRetryCount(2),
//	    netfetch.WithOnRetry(func(err error, attempt int) { log.Printf("retry %d: %v", attempt, err) }),
//	)
//
// Non-2xx responses and bodies that are not valid JSON are failures. Enable
// debug output with WithSimpleLogger, or WithLogger plus WithDebug.
package netfetch
