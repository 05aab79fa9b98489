package netfetch

import (
	"hash/fnv"
	"sync"
	"time"
)

const memoryShardCount = 16

// MemoryBackend is the default EntryBackend: a fixed set of map shards,
// each behind its own lock.
type MemoryBackend struct {
	shards []*memoryShard
}

type memoryShard struct {
	mu    sync.RWMutex
	store map[string]*Entry
}

// NewMemoryBackend returns an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	shards := make([]*memoryShard, memoryShardCount)
	for i := range shards {
		shards[i] = &memoryShard{
			store: make(map[string]*Entry),
		}
	}
	return &MemoryBackend{shards: shards}
}

func (b *MemoryBackend) getShard(key string) *memoryShard {
	hash := fnv.New32a()
	hash.Write([]byte(key))
	return b.shards[hash.Sum32()%uint32(len(b.shards))]
}

// Get implements EntryBackend.
func (b *MemoryBackend) Get(key string) (*Entry, bool) {
	shard := b.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()

	entry, ok := shard.store[key]
	return entry, ok
}

// Set implements EntryBackend.
func (b *MemoryBackend) Set(key string, entry *Entry) {
	shard := b.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	shard.store[key] = entry
}

// Delete implements EntryBackend.
func (b *MemoryBackend) Delete(key string) {
	shard := b.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	delete(shard.store, key)
}

// Len implements EntryBackend.
func (b *MemoryBackend) Len() int {
	total := 0
	for _, shard := range b.shards {
		shard.mu.RLock()
		total += len(shard.store)
		shard.mu.RUnlock()
	}
	return total
}

// Cleanup implements EntryBackend.
func (b *MemoryBackend) Cleanup(maxAge time.Duration, now time.Time) int {
	removed := 0
	for _, shard := range b.shards {
		shard.mu.Lock()
		for key, entry := range shard.store {
			if entry.Age(now) > maxAge {
				delete(shard.store, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Clear implements EntryBackend.
func (b *MemoryBackend) Clear() {
	for _, shard := range b.shards {
		shard.mu.Lock()
		shard.store = make(map[string]*Entry)
		shard.mu.Unlock()
	}
}
