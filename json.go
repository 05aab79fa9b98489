package netfetch

import (
	"context"
	"encoding/json"
)

// CachedFetchJSON runs CachedFetch and decodes the result into T.
func CachedFetchJSON[T any](ctx context.Context, f *Fetcher, req Request, options ...CallOption) (T, error) {
	raw, err := f.CachedFetch(ctx, req, options...)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeJSON[T](raw, req)
}

// RetryingFetchJSON runs RetryingFetch and decodes the result into T.
func RetryingFetchJSON[T any](ctx context.Context, f *Fetcher, req Request, options ...CallOption) (T, error) {
	raw, err := f.RetryingFetch(ctx, req, options...)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeJSON[T](raw, req)
}

func decodeJSON[T any](raw json.RawMessage, req Request) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &FetchError{
			Type:    ErrorTypeDecode,
			Message: "cannot decode response into target type",
			Cause:   err,
			Method:  req.method(),
			URL:     req.URL,
		}
	}
	return out, nil
}
