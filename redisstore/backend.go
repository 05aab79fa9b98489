// Package redisstore keeps netfetch cache entries in Redis so that several
// processes can share one cache. In-flight call tracking stays in process.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ambiyansyah-risyal/netfetch"
)

// DefaultPrefix namespaces every key the Backend writes.
const DefaultPrefix = "netfetch:"

const indexSuffix = "__index"

// Backend is a netfetch.EntryBackend over a Redis client. Entries are JSON
// values; a sorted set scored by entry timestamp indexes them for Len and
// Cleanup.
type Backend struct {
	client  redis.UniversalClient
	ctx     context.Context
	prefix  string
	onError func(op string, err error)
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix sets the key namespace.
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

// WithContext sets the context used for every Redis command.
func WithContext(ctx context.Context) Option {
	return func(b *Backend) {
		b.ctx = ctx
	}
}

// WithErrorHandler receives Redis failures. EntryBackend methods cannot
// return errors, so a failed Get reads as a miss and a failed write is
// dropped after the handler runs.
func WithErrorHandler(fn func(op string, err error)) Option {
	return func(b *Backend) {
		b.onError = fn
	}
}

// New creates a Backend on client.
func New(client redis.UniversalClient, options ...Option) *Backend {
	b := &Backend{
		client:  client,
		ctx:     context.Background(),
		prefix:  DefaultPrefix,
		onError: func(string, error) {},
	}
	for _, option := range options {
		option(b)
	}
	return b
}

var _ netfetch.EntryBackend = (*Backend)(nil)

func (b *Backend) entryKey(key string) string {
	return b.prefix + key
}

func (b *Backend) indexKey() string {
	return b.prefix + indexSuffix
}

// Get implements netfetch.EntryBackend.
func (b *Backend) Get(key string) (*netfetch.Entry, bool) {
	data, err := b.client.Get(b.ctx, b.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		b.onError("get", err)
		return nil, false
	}

	var entry netfetch.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		b.onError("decode", err)
		return nil, false
	}
	return &entry, true
}

// Set implements netfetch.EntryBackend.
func (b *Backend) Set(key string, entry *netfetch.Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		b.onError("encode", err)
		return
	}

	_, err = b.client.TxPipelined(b.ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(b.ctx, b.entryKey(key), data, 0)
		pipe.ZAdd(b.ctx, b.indexKey(), redis.Z{
			Score:  float64(entry.Timestamp.UnixMicro()),
			Member: key,
		})
		return nil
	})
	if err != nil {
		b.onError("set", err)
	}
}

// Delete implements netfetch.EntryBackend.
func (b *Backend) Delete(key string) {
	_, err := b.client.TxPipelined(b.ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(b.ctx, b.entryKey(key))
		pipe.ZRem(b.ctx, b.indexKey(), key)
		return nil
	})
	if err != nil {
		b.onError("delete", err)
	}
}

// Len implements netfetch.EntryBackend.
func (b *Backend) Len() int {
	n, err := b.client.ZCard(b.ctx, b.indexKey()).Result()
	if err != nil {
		b.onError("len", err)
		return 0
	}
	return int(n)
}

// Cleanup implements netfetch.EntryBackend. Entries stamped before
// now-maxAge are removed.
func (b *Backend) Cleanup(maxAge time.Duration, now time.Time) int {
	cutoff := now.Add(-maxAge).UnixMicro()
	keys, err := b.client.ZRangeByScore(b.ctx, b.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		b.onError("cleanup", err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	if err := b.removeKeys(keys); err != nil {
		b.onError("cleanup", err)
		return 0
	}
	return len(keys)
}

// Clear implements netfetch.EntryBackend.
func (b *Backend) Clear() {
	keys, err := b.client.ZRange(b.ctx, b.indexKey(), 0, -1).Result()
	if err != nil {
		b.onError("clear", err)
		return
	}

	if err := b.removeKeys(keys); err != nil {
		b.onError("clear", err)
		return
	}
	if err := b.client.Del(b.ctx, b.indexKey()).Err(); err != nil {
		b.onError("clear", err)
	}
}

func (b *Backend) removeKeys(keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	entryKeys := make([]string, len(keys))
	members := make([]any, len(keys))
	for i, key := range keys {
		entryKeys[i] = b.entryKey(key)
		members[i] = key
	}

	_, err := b.client.TxPipelined(b.ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(b.ctx, entryKeys...)
		pipe.ZRem(b.ctx, b.indexKey(), members...)
		return nil
	})
	return err
}
