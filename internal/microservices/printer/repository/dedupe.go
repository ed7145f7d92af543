package repository

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"restaurant-pos/internal/common/cache"
)

type RedisDedupe struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisDedupe(rdb redis.Cmdable, ttl time.Duration) *RedisDedupe {
	return &RedisDedupe{rdb: rdb, ttl: ttl}
}

func (d *RedisDedupe) Claim(ctx context.Context, ticketID string) (bool, error) {
	return d.rdb.SetNX(ctx, cache.Key("pos", "printed", ticketID), time.Now().UTC().Unix(), d.ttl).Result()
}

func (d *RedisDedupe) Release(ctx context.Context, ticketID string) error {
	return d.rdb.Del(ctx, cache.Key("pos", "printed", ticketID)).Err()
}

type MemoryDedupe struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDedupe() *MemoryDedupe { return &MemoryDedupe{seen: make(map[string]struct{})} }

func (d *MemoryDedupe) Claim(_ context.Context, ticketID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[ticketID]; ok {
		return false, nil
	}
	d.seen[ticketID] = struct{}{}
	return true, nil
}

func (d *MemoryDedupe) Release(_ context.Context, ticketID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, ticketID)
	return nil
}
