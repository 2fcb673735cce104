// Package cooldown blocks repeat submissions of a feature after the provider signalled quota exhaustion.
package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const DefaultPeriod = 60 * time.Second

// Store keeps expiring markers. The redis client satisfies it.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	PTTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
}

type Guard struct {
	store  Store
	period time.Duration
}

func NewGuard(store Store, period time.Duration) *Guard {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Guard{store: store, period: period}
}

func (g *Guard) Period() time.Duration {
	return g.period
}

func key(feature, client string) string {
	return fmt.Sprintf("cooldown:%s:%s", feature, client)
}

// Start begins a full cooldown for feature and client, restarting any running one.
func (g *Guard) Start(ctx context.Context, feature, client string) error {
	return g.store.Set(ctx, key(feature, client), time.Now().Unix(), g.period)
}

// Remaining returns the whole seconds left, rounded up; zero means submissions are allowed.
func (g *Guard) Remaining(ctx context.Context, feature, client string) (int, error) {
	ttl, err := g.store.PTTL(ctx, key(feature, client))
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, nil
	}
	return int((ttl + time.Second - 1) / time.Second), nil
}

func (g *Guard) Clear(ctx context.Context, feature, client string) error {
	return g.store.Del(ctx, key(feature, client))
}

// MemoryStore is the single-process Store used when redis is not configured.
type MemoryStore struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{deadlines: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryStore) Set(_ context.Context, key string, _ interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadlines[key] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) PTTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deadline, ok := m.deadlines[key]
	if !ok {
		return -2, nil
	}
	left := deadline.Sub(m.now())
	if left <= 0 {
		delete(m.deadlines, key)
		return -2, nil
	}
	return left, nil
}

func (m *MemoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.deadlines, k)
	}
	return nil
}
