package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter: the first hit in a window creates the key
// with the window as its TTL and every hit increments it.
type Redis struct {
	client redis.Cmdable
	policy Policy
	prefix string
}

func NewRedis(client redis.Cmdable, p Policy) *Redis {
	return &Redis{client: client, policy: p, prefix: "ratelimit:" + p.Name}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := fmt.Sprintf("%s:%s", r.prefix, key)
	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit incr: %w", err)
	}
	if n == 1 {
		if err := r.client.PExpire(ctx, k, r.policy.Window).Err(); err != nil {
			return false, 0, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	if n <= int64(r.policy.Limit) {
		return true, 0, nil
	}
	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit ttl: %w", err)
	}
	if ttl < 0 {
		// Key lost its TTL (e.g. expire failed earlier); restart the window.
		_ = r.client.PExpire(ctx, k, r.policy.Window).Err()
		ttl = r.policy.Window
	}
	return false, ttl, nil
}

// NewRedisClient connects to addr and pings it once.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return c, nil
}
