package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Memory keeps counters in process. It suits a single gateway instance.
type Memory struct {
	mu    sync.Mutex
	cache *cache.Cache
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		cache: cache.New(time.Hour, 10*time.Minute),
		now:   time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, rule Rule, subject string) (Decision, error) {
	key := rule.key(subject)

	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64 = 1
	if err := m.cache.Add(key, count, rule.Window); err != nil {
		n, err := m.cache.IncrementInt64(key, 1)
		if err != nil {
			// expired between Add and Increment
			m.cache.Set(key, count, rule.Window)
		} else {
			count = n
		}
	}

	var ttl time.Duration
	if _, expires, ok := m.cache.GetWithExpiration(key); ok && !expires.IsZero() {
		ttl = expires.Sub(m.now())
	}
	return decide(rule, count, ttl), nil
}
