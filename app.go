package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	gormlogger "gorm.io/gorm/logger"

	"zenfocus/backend/internal/cache"
	"zenfocus/backend/internal/config"
	"zenfocus/backend/internal/database"
	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/identity"
	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/middleware"
	"zenfocus/backend/internal/models"
	"zenfocus/backend/internal/monitoring"
	"zenfocus/backend/internal/realtime"
	"zenfocus/backend/internal/server"
	"zenfocus/backend/internal/session"
	"zenfocus/backend/internal/store"
	"zenfocus/backend/internal/worker"
)

const cacheSweepInterval = time.Minute

type app struct {
	cfg      *config.Config
	pool     *database.DatabasePool
	feed     gateway.Notifier
	redis    *redis.Client
	cache    *cache.MultiLevelCache
	registry *session.Registry
	hub      *realtime.Hub
	worker   *worker.Worker
	router   *gin.Engine
}

func poolConfig(cfg *config.Config) *database.PoolConfig {
	pc := database.DefaultPoolConfig()
	pc.Driver = cfg.Database.Driver
	pc.DSN = cfg.GetDatabaseDSN()
	pc.MaxOpenConns = cfg.Database.MaxOpenConns
	pc.MaxIdleConns = cfg.Database.MaxIdleConns
	pc.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	pc.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	if cfg.Database.Driver == database.DriverSQLite && pc.DSN == database.MemoryDSN {
		pc.MaxOpenConns, pc.MaxIdleConns = 1, 1
		pc.ConnMaxLifetime, pc.ConnMaxIdleTime = 0, 0
	}
	if cfg.IsProduction() {
		pc.LogLevel = gormlogger.Error
	}
	return pc
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	pool, err := database.NewDatabasePool(poolConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.pool = pool
	if err := pool.Migrate(); err != nil {
		a.close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	needRedis := cfg.Redis.Enabled || cfg.Feed.Driver == "redis"
	if needRedis {
		a.redis = cache.NewRedisClient(cache.CacheConfigFrom(cfg.GetRedisAddr(), cfg.Redis))
	}

	a.cache = cache.NewMultiLevelCache(nil)
	if cfg.Redis.Enabled {
		l2 := cache.NewRedisCacheFromClient(a.redis, cache.DefaultCacheConfig().KeyPrefix)
		if err := a.cache.AttachL2(ctx, l2); err != nil {
			logger.Warn("shared cache unavailable, serving from memory only", "error", err)
		}
	}

	switch cfg.Feed.Driver {
	case "redis":
		a.feed = gateway.NewRedisFeed(a.redis, cfg.Feed.Channel+":")
	default:
		a.feed = gateway.NewMemoryFeed()
	}

	db := pool.DB
	cols := store.Collections{
		Subjects: gateway.NewGormCollection[models.Subject](db, a.feed),
		Topics:   gateway.NewGormCollection[models.Topic](db, a.feed),
		Tasks:    gateway.NewGormCollection[models.Task](db, a.feed),
	}
	stats := gateway.NewCachedStats(gateway.NewGormStats(db), a.cache)

	svc := identity.NewService(db, cfg.Auth.BCryptCost)
	issuer := identity.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)
	if cfg.FederatedEnabled() {
		err := identity.ConfigureFederated(identity.FederatedConfig{
			GoogleClientID:     cfg.Auth.GoogleClientID,
			GoogleClientSecret: cfg.Auth.GoogleClientSecret,
			GoogleRedirectURL:  cfg.Auth.GoogleRedirectURL,
			SessionSecret:      cfg.Auth.SessionSecret,
			SessionMaxAge:      int(cfg.Auth.SessionMaxAge / time.Second),
			Secure:             cfg.IsProduction(),
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("federated sign-in: %w", err)
		}
	}

	a.hub = realtime.NewHub()
	a.registry = session.NewRegistry(session.Config{Collections: cols, Stats: stats})
	a.registry.OnCreate(func(id uuid.UUID, st *session.State) {
		a.hub.Attach(id, st)
	})
	a.registry.Watch(svc)

	health := monitoring.NewHealthChecker()
	health.Register("database", func(ctx context.Context) error { return pool.Health() })
	health.Register("cache", a.cache.Health)

	a.worker = worker.NewWorker()
	a.worker.RegisterJob("cache-sweep", cacheSweepInterval, func(ctx context.Context) error {
		if n := a.cache.Sweep(); n > 0 {
			logger.Debug("swept expired cache entries", "count", n)
		}
		return nil
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
		a.worker.RegisterJob("rate-limit-cleanup", limiter.Interval(), func(ctx context.Context) error {
			if n := limiter.Cleanup(); n > 0 {
				logger.Debug("dropped idle rate limit visitors", "count", n)
			}
			return nil
		})
	}

	a.router = server.NewRouter(server.Deps{
		Config:   cfg,
		Identity: svc,
		Issuer:   issuer,
		Registry: a.registry,
		Hub:      a.hub,
		Health:   health,
		Limiter:  limiter,
	})

	return a, nil
}

func (a *app) httpServer() *http.Server {
	return &http.Server{
		Addr:         a.cfg.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
}

// close releases everything newApp opened, in reverse order.
func (a *app) close() {
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.registry != nil {
		a.registry.Close()
	}
	if a.feed != nil {
		if err := a.feed.Close(); err != nil {
			logger.Warn("failed to close change feed", "error", err)
		}
	}
	// The Redis client is shared by the cache and the feed.
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}
}
