package folio

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"restaurant-pos/internal/common/cache"
)

// Redis uses INCR on a shared key. SETNX seeds the base once.
type Redis struct {
	rdb  redis.Cmdable
	key  string
	base int64
}

func NewRedis(rdb redis.Cmdable, base int64) *Redis {
	return &Redis{rdb: rdb, key: cache.Key("pos", "counter", counterName), base: base}
}

func (r *Redis) Next(ctx context.Context) (int64, error) {
	if err := r.rdb.SetNX(ctx, r.key, r.base, 0).Err(); err != nil {
		return 0, fmt.Errorf("seed folio: %w", err)
	}
	n, err := r.rdb.Incr(ctx, r.key).Result()
	if err != nil {
		return 0, fmt.Errorf("next folio: %w", err)
	}
	return n, nil
}
