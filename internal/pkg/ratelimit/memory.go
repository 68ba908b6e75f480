package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is a per-key token bucket refilled at Limit/Window with a burst of
// Limit. Idle keys are dropped by a background sweep.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	every   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
}

// NewMemory starts a limiter for p. The sweep goroutine stops when ctx is done.
func NewMemory(ctx context.Context, p Policy) *Memory {
	m := newMemory(p)
	go m.sweep(ctx, p.Window)
	return m
}

func newMemory(p Policy) *Memory {
	limit := p.Limit
	if limit < 1 {
		limit = 1
	}
	idle := 2 * p.Window
	if idle < 10*time.Minute {
		idle = 10 * time.Minute
	}
	return &Memory{
		entries: make(map[string]*entry),
		every:   rate.Every(p.Window / time.Duration(limit)),
		burst:   limit,
		idle:    idle,
		now:     time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := m.now()
	l := m.get(key, now)
	if l.AllowN(now, 1) {
		return true, 0, nil
	}
	res := l.ReserveN(now, 1)
	wait := res.DelayFrom(now)
	res.CancelAt(now)
	return false, wait, nil
}

func (m *Memory) get(key string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	l := rate.NewLimiter(m.every, m.burst)
	m.entries[key] = &entry{limiter: l, lastSeen: now}
	return l
}

func (m *Memory) sweep(ctx context.Context, every time.Duration) {
	if every < time.Minute {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.removeIdle()
		}
	}
}

func (m *Memory) removeIdle() {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, e := range m.entries {
		if now.Sub(e.lastSeen) > m.idle {
			delete(m.entries, key)
		}
	}
}
