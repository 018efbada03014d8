package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"task-platform/backend/internal/clock"
)

const defaultL1TTL = 5 * time.Minute

// MultiLevelCache reads through an in-process cache to Redis. Redis is
// optional; when it is missing or its breaker is open, the memory level
// keeps serving.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	logger  *slog.Logger
}

func NewMultiLevelCache(redisCache *RedisCache, clk clock.Clock, logger *slog.Logger) *MultiLevelCache {
	breakerConfig := DefaultCircuitBreakerConfig()
	breakerConfig.Clock = clk

	return &MultiLevelCache{
		l1:      NewMemoryCache(clk),
		l2:      redisCache,
		breaker: NewCircuitBreaker(breakerConfig),
		metrics: NewCacheMetrics(),
		logger:  logger,
	}
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.l1.Set(key, value, ttl)
	c.metrics.RecordSet()

	if c.l2 == nil {
		return nil
	}
	err := c.breaker.Execute(func() error {
		return c.l2.Set(ctx, key, value, ttl)
	})
	if err != nil {
		c.l2Failed("set", key, err)
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	return nil
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if value, found := c.l1.Get(key); found {
		c.metrics.RecordHit()
		return copyValue(value, dest)
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	err := c.breaker.Execute(func() error {
		return c.l2.Get(ctx, key, dest)
	})
	switch {
	case err == nil:
		c.metrics.RecordHit()
		c.l1.Set(key, reflect.ValueOf(dest).Elem().Interface(), defaultL1TTL)
		return nil
	case errors.Is(err, ErrCacheMiss):
		c.metrics.RecordMiss()
		return ErrCacheMiss
	default:
		c.l2Failed("get", key, err)
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
}

func (c *MultiLevelCache) Exists(ctx context.Context, key string) (bool, error) {
	if _, found := c.l1.Get(key); found {
		c.metrics.RecordHit()
		return true, nil
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return false, nil
	}

	var exists bool
	err := c.breaker.Execute(func() error {
		var err error
		exists, err = c.l2.Exists(ctx, key)
		return err
	})
	if err != nil {
		c.l2Failed("exists", key, err)
		return false, fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	if exists {
		c.metrics.RecordHit()
	} else {
		c.metrics.RecordMiss()
	}
	return exists, nil
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.l1.Delete(key)
	c.metrics.RecordDelete()

	if c.l2 == nil {
		return nil
	}
	err := c.breaker.Execute(func() error {
		return c.l2.Delete(ctx, key)
	})
	if err != nil {
		c.l2Failed("delete", key, err)
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}
	return nil
}

// PurgeExpired drops expired entries from the memory level.
func (c *MultiLevelCache) PurgeExpired() int {
	return c.l1.Purge()
}

func (c *MultiLevelCache) Metrics() CacheMetrics {
	return c.metrics.GetStats()
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":       c.l1.Stats(),
		"metrics":  c.metrics.GetStats(),
		"hit_rate": c.metrics.HitRate(),
		"breaker":  c.breaker.GetStats(),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
	}

	return stats
}

// Health reports Redis reachability; a memory-only cache is always healthy.
func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 != nil {
		return c.l2.Health(ctx)
	}
	return nil
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}
	return nil
}

func (c *MultiLevelCache) l2Failed(op, key string, err error) {
	c.metrics.RecordError()
	if c.logger != nil {
		c.logger.Warn("redis cache operation failed",
			slog.String("op", op),
			slog.String("key", key),
			slog.String("breaker", c.breaker.GetState().String()),
			slog.Any("error", err))
	}
}

func copyValue(src, dest interface{}) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("destination must be a pointer, got %T", dest)
	}
	if destValue.IsNil() {
		return fmt.Errorf("destination pointer is nil")
	}

	srcValue := reflect.ValueOf(src)
	if srcValue.IsValid() && srcValue.Type().AssignableTo(destValue.Elem().Type()) {
		destValue.Elem().Set(srcValue)
		return nil
	}

	jsonData, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("failed to marshal source value: %w", err)
	}
	if err := json.Unmarshal(jsonData, dest); err != nil {
		return fmt.Errorf("failed to unmarshal to destination: %w", err)
	}
	return nil
}
