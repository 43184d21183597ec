package cache

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

const (
	memoryShards             = 64
	memoryEvictionPercentage = 10
)

// MemoryBackend is an in-process backend on a sharded sturdyc client. Every
// entry shares the TTL given at construction; the ttl passed to Set is ignored.
type MemoryBackend struct {
	client *sturdyc.Client[[]byte]
}

// NewMemoryBackend returns a backend holding at most capacity entries for ttl.
func NewMemoryBackend(capacity int, ttl time.Duration) *MemoryBackend {
	if capacity < memoryShards {
		capacity = memoryShards
	}
	return &MemoryBackend{
		client: sturdyc.New[[]byte](capacity, memoryShards, ttl, memoryEvictionPercentage),
	}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := b.client.Get(key)
	return v, ok, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.client.Set(key, value)
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		b.client.Delete(key)
	}
	return nil
}

func (b *MemoryBackend) DeletePrefix(_ context.Context, prefix string) (int, error) {
	deleted := 0
	for _, key := range b.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			b.client.Delete(key)
			deleted++
		}
	}
	return deleted, nil
}

func (b *MemoryBackend) Ping(context.Context) error {
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
