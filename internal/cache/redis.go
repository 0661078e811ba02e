package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"zenfocus/backend/internal/config"
)

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrCacheDown = errors.New("cache unavailable")
)

const (
	defaultOpTimeout = 3 * time.Second
	pingTimeout      = 2 * time.Second
	scanBatch        = 100
)

// RedisCache is the shared L2 level. Values are stored as JSON under a
// common key prefix.
type RedisCache struct {
	client *redis.Client
	prefix string
}

type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "zenfocus:cache:",
	}
}

// CacheConfigFrom fills the client settings from the REDIS_* environment.
// Zero values keep the defaults.
func CacheConfigFrom(addr string, rc config.RedisConfig) *CacheConfig {
	cc := DefaultCacheConfig()
	cc.Addr = addr
	cc.Password = rc.Password
	cc.DB = rc.DB
	if rc.PoolSize > 0 {
		cc.PoolSize = rc.PoolSize
	}
	if rc.MinIdleConns > 0 {
		cc.MinIdleConns = rc.MinIdleConns
	}
	if rc.MaxRetries != 0 {
		cc.MaxRetries = rc.MaxRetries
	}
	if rc.DialTimeout > 0 {
		cc.DialTimeout = rc.DialTimeout
	}
	if rc.ReadTimeout > 0 {
		cc.ReadTimeout = rc.ReadTimeout
	}
	if rc.WriteTimeout > 0 {
		cc.WriteTimeout = rc.WriteTimeout
	}
	return cc
}

// NewRedisClient builds the go-redis client shared by the cache and the
// change feed.
func NewRedisClient(cc *CacheConfig) *redis.Client {
	if cc == nil {
		cc = DefaultCacheConfig()
	}
	return redis.NewClient(&redis.Options{
		Addr:         cc.Addr,
		Password:     cc.Password,
		DB:           cc.DB,
		PoolSize:     cc.PoolSize,
		MinIdleConns: cc.MinIdleConns,
		MaxRetries:   cc.MaxRetries,
		DialTimeout:  cc.DialTimeout,
		ReadTimeout:  cc.ReadTimeout,
		WriteTimeout: cc.WriteTimeout,
	})
}

func NewRedisCache(cc *CacheConfig) *RedisCache {
	if cc == nil {
		cc = DefaultCacheConfig()
	}
	return NewRedisCacheFromClient(NewRedisClient(cc), cc.KeyPrefix)
}

func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) key(k string) string {
	return r.prefix + k
}

func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	return r.client.Del(ctx, r.key(key)).Err()
}

// DeletePattern collects matching keys with SCAN, then unlinks them in
// batches. Keys are not removed while the cursor is live, since a
// deletion can shift the cursor and skip keys.
func (r *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.key(pattern), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", pattern, err)
	}

	for len(keys) > 0 {
		n := min(scanBatch, len(keys))
		opCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
		err := r.client.Unlink(opCtx, keys[:n]...).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("delete %s: %w", pattern, err)
		}
		keys = keys[n:]
	}
	return nil
}

func (r *RedisCache) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Stats() map[string]interface{} {
	pool := r.client.PoolStats()
	return map[string]interface{}{
		"prefix":        r.prefix,
		"pool_hits":     pool.Hits,
		"pool_misses":   pool.Misses,
		"pool_timeouts": pool.Timeouts,
		"pool_total":    pool.TotalConns,
		"pool_idle":     pool.IdleConns,
	}
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
