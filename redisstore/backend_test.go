package redisstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambiyansyah-risyal/netfetch"
)

func setupTestRedis(t *testing.T, options ...Option) (*Backend, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	backend := New(client, options...)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return backend, mr
}

func TestBackend_SetAndGet(t *testing.T) {
	backend, mr := setupTestRedis(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	backend.Set("GET-https://api.example.com/data-", &netfetch.Entry{
		Value:     json.RawMessage(`{"foo":"bar"}`),
		Timestamp: now,
	})

	entry, ok := backend.Get("GET-https://api.example.com/data-")
	require.True(t, ok)
	assert.JSONEq(t, `{"foo":"bar"}`, string(entry.Value))
	assert.True(t, now.Equal(entry.Timestamp))
	assert.Equal(t, 1, backend.Len())

	assert.True(t, mr.Exists(DefaultPrefix+"GET-https://api.example.com/data-"))
}

func TestBackend_GetNotFound(t *testing.T) {
	backend, _ := setupTestRedis(t)

	_, ok := backend.Get("nonexistent")
	assert.False(t, ok)
}

func TestBackend_Overwrite(t *testing.T) {
	backend, _ := setupTestRedis(t)
	now := time.Now()

	backend.Set("k", &netfetch.Entry{Value: json.RawMessage(`1`), Timestamp: now.Add(-time.Minute)})
	backend.Set("k", &netfetch.Entry{Value: json.RawMessage(`2`), Timestamp: now})

	entry, ok := backend.Get("k")
	require.True(t, ok)
	assert.Equal(t, "2", string(entry.Value))
	assert.Equal(t, 1, backend.Len())

	assert.Equal(t, 0, backend.Cleanup(30*time.Second, now), "the index follows the newest timestamp")
}

func TestBackend_Delete(t *testing.T) {
	backend, _ := setupTestRedis(t)

	backend.Set("k", &netfetch.Entry{Value: json.RawMessage(`1`), Timestamp: time.Now()})
	backend.Delete("k")

	_, ok := backend.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, backend.Len())
}

func TestBackend_Cleanup(t *testing.T) {
	backend, _ := setupTestRedis(t)
	now := time.Now()

	backend.Set("old", &netfetch.Entry{Value: json.RawMessage(`1`), Timestamp: now.Add(-10 * time.Second)})
	backend.Set("edge", &netfetch.Entry{Value: json.RawMessage(`2`), Timestamp: now.Add(-5 * time.Second)})
	backend.Set("new", &netfetch.Entry{Value: json.RawMessage(`3`), Timestamp: now})

	removed := backend.Cleanup(5*time.Second, now)

	assert.Equal(t, 1, removed)
	_, ok := backend.Get("old")
	assert.False(t, ok)
	_, ok = backend.Get("edge")
	assert.True(t, ok, "entries exactly maxAge old are kept")
	assert.Equal(t, 2, backend.Len())
}

func TestBackend_Clear(t *testing.T) {
	backend, mr := setupTestRedis(t)

	backend.Set("a", &netfetch.Entry{Value: json.RawMessage(`1`), Timestamp: time.Now()})
	backend.Set("b", &netfetch.Entry{Value: json.RawMessage(`2`), Timestamp: time.Now()})
	require.NoError(t, mr.Set("unrelated", "keep"))

	backend.Clear()

	assert.Equal(t, 0, backend.Len())
	assert.True(t, mr.Exists("unrelated"), "only prefixed keys are removed")
}

func TestBackend_Prefix(t *testing.T) {
	backend, mr := setupTestRedis(t, WithPrefix("svc-a:"))

	backend.Set("k", &netfetch.Entry{Value: json.RawMessage(`1`), Timestamp: time.Now()})

	assert.True(t, mr.Exists("svc-a:k"))
	assert.False(t, mr.Exists(DefaultPrefix+"k"))
}

func TestBackend_ErrorHandler(t *testing.T) {
	var mu sync.Mutex
	var ops []string
	backend, mr := setupTestRedis(t, WithErrorHandler(func(op string, err error) {
		mu.Lock()
		defer mu.Unlock()
		ops = append(ops, op)
	}))

	require.NoError(t, mr.Set(DefaultPrefix+"broken", "not json"))
	_, ok := backend.Get("broken")
	assert.False(t, ok)

	mr.Close()
	backend.Set("k", &netfetch.Entry{Value: json.RawMessage(`1`), Timestamp: time.Now()})
	assert.Equal(t, 0, backend.Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"decode", "set", "len"}, ops)
}

func TestBackend_SharedAcrossFetchers(t *testing.T) {
	backend, _ := setupTestRedis(t)

	var mu sync.Mutex
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.Write([]byte(`{"message":"hello"}`))
	}))
	defer server.Close()

	// Two processes modelled as two stores sharing one Redis backend.
	first := netfetch.New(netfetch.WithHTTPClient(server.Client()), netfetch.WithStore(netfetch.NewStore(netfetch.WithBackend(backend))))
	second := netfetch.New(netfetch.WithHTTPClient(server.Client()), netfetch.WithStore(netfetch.NewStore(netfetch.WithBackend(backend))))

	req := netfetch.Request{URL: server.URL + "/greeting"}

	_, err := first.CachedFetch(context.Background(), req)
	require.NoError(t, err)

	result, err := second.CachedFetch(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hello"}`, string(result))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
}
