// Package ratelimit counts requests per key over a fixed budget. The memory
// backend keeps state in-process; the Redis backend shares it across replicas.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more request for key fits in the budget.
// When it does not, retryAfter is a hint for how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// Policy is "Limit requests per Window".
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}
