package mockapi

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper maps idempotency keys to the record they created.
type Deduper interface {
	// Claim binds key to id unless the key is already bound. It returns the
	// id the key is bound to and whether this call made the binding.
	Claim(ctx context.Context, key, id string) (string, bool, error)
}

// MemoryDeduper keeps keys for the life of the process.
type MemoryDeduper struct {
	mu   sync.Mutex
	keys map[string]string
}

// NewMemoryDeduper returns an empty in-memory deduper.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{keys: make(map[string]string)}
}

// Claim implements Deduper.
func (d *MemoryDeduper) Claim(_ context.Context, key, id string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if owner, ok := d.keys[key]; ok {
		return owner, false, nil
	}
	d.keys[key] = id
	return id, true, nil
}

// RedisDeduper stores keys in Redis so several dev servers can share them.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper using the provided Redis client and TTL.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(key string) string {
	return "nailedit:idempotency:" + key
}

// Claim implements Deduper.
func (r *RedisDeduper) Claim(ctx context.Context, key, id string) (string, bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), id, r.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return id, true, nil
	}
	owner, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		return "", false, err
	}
	return owner, false, nil
}
