package cache

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Cache stores analyzer responses keyed by market snapshot. A ttl of 0
// means the entry does not expire.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// NewAuto returns a Redis-backed cache when REDIS_ADDR is set and
// reachable, otherwise an in-process one.
func NewAuto() Cache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return NewMemory()
	}
	r := NewRedis(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable, using in-memory cache")
		_ = r.Close()
		return NewMemory()
	}
	log.Debug().Str("addr", addr).Msg("using redis cache")
	return r
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is a process-local cache with periodic expiry sweeps.
type Memory struct {
	mu    sync.RWMutex
	store map[string]memoryEntry
	stop  chan struct{}
	once  sync.Once
}

func NewMemory() *Memory {
	m := &Memory{
		store: make(map[string]memoryEntry),
		stop:  make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.store[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return "", false, nil
	}
	return entry.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.store[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// sweep periodically removes expired entries.
func (m *Memory) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, entry := range m.store {
				if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
					delete(m.store, key)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Redis backs the cache with a shared Redis instance so repeated runs
// and multiple API replicas reuse the same analyzer responses.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewRedisWithClient wraps an existing client. Used by tests.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
