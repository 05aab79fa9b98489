package netfetch

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// KeyFunc derives the fingerprint that indexes cached entries and
// in-flight calls.
type KeyFunc func(req Request) (string, error)

// DefaultKeyFunc builds "<METHOD>-<URL>-<bodyhash>". The body hash is the
// xxhash64 of the JSON-encoded body in hex, or empty when there is no body,
// so bodyless requests to the same URL share a key.
func DefaultKeyFunc(req Request) (string, error) {
	bodyHash, err := hashBody(req.Body)
	if err != nil {
		return "", err
	}

	var buf []byte
	buf = append(buf, req.method()...)
	buf = append(buf, '-')
	buf = append(buf, req.URL...)
	buf = append(buf, '-')
	buf = append(buf, bodyHash...)

	return string(buf), nil
}

func hashBody(body any) (string, error) {
	if body == nil {
		return "", nil
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode body for cache key: %w", err)
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
