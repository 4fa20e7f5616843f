package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// planKeyPrefix namespaces payoff plan entries so InvalidateAll can
// sweep them without touching other keys.
const planKeyPrefix = "payoff:"

// PlanCache stores serialized payoff plans keyed by a digest of the
// debts and strategy that produced them.
type PlanCache interface {
	GetPlan(ctx context.Context, key string) ([]byte, bool)
	SetPlan(ctx context.Context, key string, payload []byte) error
	InvalidateAll(ctx context.Context) error
}

// RedisPlanCache keeps plans in Redis so multiple planner instances
// share the same cache.
type RedisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPlanCache(addr string, ttl time.Duration) (*RedisPlanCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisPlanCache{client: rdb, ttl: ttl}, nil
}

func (c *RedisPlanCache) GetPlan(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, planKeyPrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (c *RedisPlanCache) SetPlan(ctx context.Context, key string, payload []byte) error {
	return c.client.Set(ctx, planKeyPrefix+key, payload, c.ttl).Err()
}

func (c *RedisPlanCache) InvalidateAll(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, planKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete plan key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan plan keys: %w", err)
	}
	return nil
}

func (c *RedisPlanCache) Close() error {
	return c.client.Close()
}

// MemoryPlanCache is the single-process fallback used when no Redis
// address is configured.
type MemoryPlanCache struct {
	entries *LRUCache[[]byte]
}

func NewMemoryPlanCache(maxSize int, ttl time.Duration) *MemoryPlanCache {
	return &MemoryPlanCache{
		entries: NewLRUCache[[]byte](maxSize, ttl),
	}
}

func (c *MemoryPlanCache) GetPlan(_ context.Context, key string) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *MemoryPlanCache) SetPlan(_ context.Context, key string, payload []byte) error {
	c.entries.Set(key, payload)
	return nil
}

func (c *MemoryPlanCache) InvalidateAll(_ context.Context) error {
	c.entries.Clear()
	return nil
}
