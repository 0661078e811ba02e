package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zenfocus/backend/internal/cache"
	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/models"
)

// StatsStore is the per-identity statistics document.
type StatsStore interface {
	// Get returns zero stats for an owner that has never earned XP.
	Get(ctx context.Context, owner uuid.UUID) (models.UserStats, error)
	// AddXP creates the document on first use and adds delta to it.
	AddXP(ctx context.Context, owner uuid.UUID, delta int64) (models.UserStats, error)
}

type GormStats struct {
	db *gorm.DB
}

func NewGormStats(db *gorm.DB) *GormStats {
	return &GormStats{db: db}
}

func (s *GormStats) Get(ctx context.Context, owner uuid.UUID) (models.UserStats, error) {
	var stats models.UserStats
	err := s.db.WithContext(ctx).Where("owner_id = ?", owner).First(&stats).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserStats{OwnerID: owner}, nil
	}
	if err != nil {
		return stats, fmt.Errorf("get user stats: %w", err)
	}
	return stats, nil
}

func (s *GormStats) AddXP(ctx context.Context, owner uuid.UUID, delta int64) (models.UserStats, error) {
	if owner.IsNil() {
		return models.UserStats{}, ErrNoOwner
	}
	if delta < 0 {
		return models.UserStats{}, fmt.Errorf("xp delta must not be negative, got %d", delta)
	}

	now := time.Now().UTC()
	row := models.UserStats{OwnerID: owner, XP: delta, UpdatedAt: now}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"xp":         gorm.Expr("user_stats.xp + ?", delta),
			"updated_at": now,
		}),
	}).Create(&row).Error
	if err != nil {
		return models.UserStats{}, fmt.Errorf("add xp: %w", err)
	}

	return s.Get(ctx, owner)
}

const statsCacheTTL = 15 * time.Minute

// CachedStats fronts a StatsStore with the offline cache. Cache failures
// never fail a read or write.
type CachedStats struct {
	next  StatsStore
	cache cache.Cache
}

func NewCachedStats(next StatsStore, c cache.Cache) *CachedStats {
	return &CachedStats{next: next, cache: c}
}

func statsKey(owner uuid.UUID) string {
	return fmt.Sprintf("user_stats:%s", owner.String())
}

// Evict drops every cached document for owner from both cache levels.
func (s *CachedStats) Evict(ctx context.Context, owner uuid.UUID) error {
	if err := s.cache.DeletePattern(ctx, statsKey(owner)+"*"); err != nil {
		return fmt.Errorf("evict user stats: %w", err)
	}
	return nil
}

func (s *CachedStats) Get(ctx context.Context, owner uuid.UUID) (models.UserStats, error) {
	var cached models.UserStats
	if err := s.cache.Get(ctx, statsKey(owner), &cached); err == nil {
		return cached, nil
	}

	stats, err := s.next.Get(ctx, owner)
	if err != nil {
		return stats, err
	}

	s.store(ctx, stats)
	return stats, nil
}

func (s *CachedStats) AddXP(ctx context.Context, owner uuid.UUID, delta int64) (models.UserStats, error) {
	stats, err := s.next.AddXP(ctx, owner, delta)
	if err != nil {
		_ = s.cache.Delete(ctx, statsKey(owner))
		return stats, err
	}

	s.store(ctx, stats)
	return stats, nil
}

func (s *CachedStats) store(ctx context.Context, stats models.UserStats) {
	if err := s.cache.Set(ctx, statsKey(stats.OwnerID), stats, statsCacheTTL); err != nil {
		logger.Debug("failed to cache user stats", "owner", stats.OwnerID, "error", err)
	}
}
