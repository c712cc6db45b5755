package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
)

// Status is the outcome of a check-and-lease.
type Status int

// Check-and-lease outcomes.
const (
	LeaseHeld     Status = 0 // another caller is computing the value
	Hit           Status = 1
	LeaseAcquired Status = 2
)

// Store is the storage behind the cache middleware.
type Store interface {
	// CheckAndLease returns the cached value for key, or atomically takes
	// leaseKey for leaseTTL so only one caller computes it.
	CheckAndLease(ctx context.Context, key, leaseKey string, leaseTTL time.Duration) (Status, []byte, error)
	// Get returns llmerrors.ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Release(ctx context.Context, leaseKey string) error
}

// checkOrLease returns {1, value} on a hit, {2} when the lease was taken and
// {0} when someone else holds it. Entries that are not JSON objects are
// treated as corrupt and dropped.
//
// KEYS[1] = cache key
// KEYS[2] = lease key
// ARGV[1] = lease TTL in milliseconds.
var checkOrLease = redis.NewScript(`
	local cached = redis.call('GET', KEYS[1])
	if cached then
		if string.len(cached) >= 2 and string.sub(cached, 1, 1) == '{' then
			return {1, cached}
		end
		redis.call('DEL', KEYS[1])
	end
	if redis.call('SET', KEYS[2], '1', 'NX', 'PX', ARGV[1]) then
		return {2, false}
	end
	return {0, false}
`)

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// CheckAndLease implements Store.
func (s *RedisStore) CheckAndLease(ctx context.Context, key, leaseKey string, leaseTTL time.Duration) (Status, []byte, error) {
	res, err := checkOrLease.Run(ctx, s.client, []string{key, leaseKey}, leaseTTL.Milliseconds()).Slice()
	if err != nil {
		return LeaseHeld, nil, fmt.Errorf("atomic check-and-lease failed: %w", err)
	}
	if len(res) == 0 {
		return LeaseHeld, nil, errors.New("unexpected script result format")
	}
	code, ok := res[0].(int64)
	if !ok {
		return LeaseHeld, nil, fmt.Errorf("invalid status code %T in script result", res[0])
	}
	switch Status(code) {
	case Hit:
		if len(res) < 2 {
			return LeaseHeld, nil, errors.New("cache hit without value")
		}
		switch v := res[1].(type) {
		case string:
			return Hit, []byte(v), nil
		case []byte:
			return Hit, v, nil
		default:
			return LeaseHeld, nil, fmt.Errorf("invalid cached data type %T", v)
		}
	case LeaseAcquired:
		return LeaseAcquired, nil, nil
	default:
		return LeaseHeld, nil, nil
	}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, llmerrors.ErrCacheMiss
	}
	return b, err
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Release implements Store.
func (s *RedisStore) Release(ctx context.Context, leaseKey string) error {
	return s.client.Del(ctx, leaseKey).Err()
}

type memoryItem struct {
	value   []byte
	expires time.Time // zero means never
}

// MemoryStore is a process-local Store for single-process runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) lookup(key string) ([]byte, bool) {
	item, ok := s.items[key]
	if !ok {
		return nil, false
	}
	if !item.expires.IsZero() && !s.now().Before(item.expires) {
		delete(s.items, key)
		return nil, false
	}
	return item.value, true
}

func (s *MemoryStore) put(key string, value []byte, ttl time.Duration) {
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expires = s.now().Add(ttl)
	}
	s.items[key] = item
}

// CheckAndLease implements Store.
func (s *MemoryStore) CheckAndLease(_ context.Context, key, leaseKey string, leaseTTL time.Duration) (Status, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.lookup(key); ok {
		return Hit, append([]byte(nil), v...), nil
	}
	if _, held := s.lookup(leaseKey); held {
		return LeaseHeld, nil, nil
	}
	s.put(leaseKey, []byte("1"), leaseTTL)
	return LeaseAcquired, nil, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.lookup(key)
	if !ok {
		return nil, llmerrors.ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, append([]byte(nil), value...), ttl)
	return nil
}

// Release implements Store.
func (s *MemoryStore) Release(_ context.Context, leaseKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, leaseKey)
	return nil
}

// Len returns the number of stored keys, leases included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
