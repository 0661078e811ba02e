package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"zenfocus/backend/internal/logger"
)

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Stats() map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

const l1PromoteTTL = 5 * time.Minute

// MultiLevelCache reads through a process-local L1 and an optional Redis L2.
// Without an L2, or while its breaker is open, it serves from L1 only.
type MultiLevelCache struct {
	l1 *MemoryCache

	mu      sync.RWMutex
	l2      *RedisCache
	breaker *Breaker

	metrics *CacheMetrics
}

var _ Cache = (*MultiLevelCache)(nil)

func NewMultiLevelCache(breaker *Breaker) *MultiLevelCache {
	if breaker == nil {
		breaker = NewBreaker(DefaultBreakerConfig())
	}
	return &MultiLevelCache{
		l1:      NewMemoryCache(),
		breaker: breaker,
		metrics: NewCacheMetrics(),
	}
}

// AttachL2 pings the shared cache and enables it as the second level.
// On failure the cache stays L1-only and the error is returned for logging.
func (c *MultiLevelCache) AttachL2(ctx context.Context, l2 *RedisCache) error {
	if l2 == nil {
		return errors.New("no shared cache configured")
	}
	if err := l2.Health(ctx); err != nil {
		c.metrics.RecordDegrade()
		return fmt.Errorf("%w: %v", ErrCacheDown, err)
	}

	c.mu.Lock()
	c.l2 = l2
	c.mu.Unlock()
	return nil
}

// Sweep purges expired L1 entries. L2 expires keys on its own.
func (c *MultiLevelCache) Sweep() int {
	return c.l1.Sweep()
}

func (c *MultiLevelCache) HasL2() bool {
	return c.shared() != nil
}

func (c *MultiLevelCache) Metrics() *CacheMetrics {
	return c.metrics
}

func (c *MultiLevelCache) shared() *RedisCache {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.l2
}

// onL2 runs fn through the breaker. L2 failures are counted and logged.
func (c *MultiLevelCache) onL2(op string, fn func(l2 *RedisCache) error) error {
	l2 := c.shared()
	if l2 == nil {
		return nil
	}

	err := c.breaker.Do(func() error { return fn(l2) })
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		c.metrics.RecordError()
		logger.Debug("shared cache operation failed", "op", op, "error", err)
	}
	return err
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.l1.Set(key, value, ttl)
	c.metrics.RecordSet()

	err := c.onL2("set", func(l2 *RedisCache) error {
		return l2.Set(ctx, key, value, ttl)
	})
	if errors.Is(err, ErrBreakerOpen) {
		return nil
	}
	return err
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if value, found := c.l1.Get(key); found {
		c.metrics.RecordL1Hit()
		return copyValue(value, dest)
	}

	if c.shared() == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	err := c.onL2("get", func(l2 *RedisCache) error {
		return l2.Get(ctx, key, dest)
	})
	switch {
	case err == nil:
		c.metrics.RecordL2Hit()
		c.l1.Set(key, reflect.ValueOf(dest).Elem().Interface(), l1PromoteTTL)
		return nil
	case errors.Is(err, ErrCacheMiss), errors.Is(err, ErrBreakerOpen):
		c.metrics.RecordMiss()
		return ErrCacheMiss
	default:
		return err
	}
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.l1.Delete(key)
	c.metrics.RecordDelete()

	err := c.onL2("delete", func(l2 *RedisCache) error {
		return l2.Delete(ctx, key)
	})
	if errors.Is(err, ErrBreakerOpen) {
		return nil
	}
	return err
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	c.l1.DeletePattern(pattern)

	err := c.onL2("delete_pattern", func(l2 *RedisCache) error {
		return l2.DeletePattern(ctx, pattern)
	})
	if errors.Is(err, ErrBreakerOpen) {
		return nil
	}
	return err
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":       c.l1.Stats(),
		"breaker":  c.breaker.Stats(),
		"metrics":  c.metrics.GetStats(),
		"hit_rate": c.metrics.HitRate(),
	}

	if l2 := c.shared(); l2 != nil {
		stats["l2"] = l2.Stats()
	}

	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if l2 := c.shared(); l2 != nil {
		return l2.Health(ctx)
	}
	return nil
}

func (c *MultiLevelCache) Close() error {
	if l2 := c.shared(); l2 != nil {
		return l2.Close()
	}
	return nil
}

// copyValue round-trips through JSON so callers never alias L1 entries.
func copyValue(src, dest interface{}) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("destination must be a pointer, got %T", dest)
	}
	if destValue.IsNil() {
		return fmt.Errorf("destination pointer is nil")
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
