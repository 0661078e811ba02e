package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"

	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/monitoring"
)

// Record is a document that belongs to exactly one owner.
type Record interface {
	RecordID() uuid.UUID
	OwnerKey() uuid.UUID
}

// SnapshotFunc receives the full current contents of an owner-scoped
// collection, or the error that prevented reading it.
type SnapshotFunc[T Record] func(records []T, err error)

// Collection is an owner-scoped document collection with a live
// query+subscribe primitive.
type Collection[T Record] interface {
	Name() string
	Create(ctx context.Context, rec *T) error
	Update(ctx context.Context, owner, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, owner, id uuid.UUID) error
	Get(ctx context.Context, owner, id uuid.UUID) (T, error)
	List(ctx context.Context, owner uuid.UUID) ([]T, error)
	Subscribe(ctx context.Context, owner uuid.UUID, fn SnapshotFunc[T]) (*Subscription, error)
}

type GormCollection[T Record] struct {
	db   *gorm.DB
	feed Notifier
	name string
}

// immutableFields are dropped from partial updates.
var immutableFields = []string{"id", "owner_id", "created_at"}

func NewGormCollection[T Record](db *gorm.DB, feed Notifier) *GormCollection[T] {
	var zero T
	name := fmt.Sprintf("%T", zero)
	if named, ok := any(zero).(interface{ TableName() string }); ok {
		name = named.TableName()
	}
	return &GormCollection[T]{db: db, feed: feed, name: name}
}

func (c *GormCollection[T]) Name() string {
	return c.name
}

func (c *GormCollection[T]) topic(owner uuid.UUID) string {
	return c.name + ":" + owner.String()
}

func (c *GormCollection[T]) notify(ctx context.Context, owner uuid.UUID) {
	if err := c.feed.Publish(ctx, c.topic(owner)); err != nil {
		logger.Warn("failed to publish change", "collection", c.name, "owner", owner, "error", err)
	}
}

func (c *GormCollection[T]) Create(ctx context.Context, rec *T) error {
	owner := (*rec).OwnerKey()
	if owner.IsNil() {
		return ErrNoOwner
	}

	if err := c.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("create %s: %w", c.name, err)
	}

	c.notify(ctx, owner)
	return nil
}

// Update merges fields into the record. A missing record is ErrNotFound.
func (c *GormCollection[T]) Update(ctx context.Context, owner, id uuid.UUID, fields map[string]interface{}) error {
	changes := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		changes[k] = v
	}
	for _, k := range immutableFields {
		delete(changes, k)
	}
	if len(changes) == 0 {
		return ErrNoFields
	}

	result := c.db.WithContext(ctx).
		Model(new(T)).
		Where("id = ? AND owner_id = ?", id, owner).
		Updates(changes)
	if result.Error != nil {
		return fmt.Errorf("update %s %s: %w", c.name, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	c.notify(ctx, owner)
	return nil
}

// Delete removes the record. Deleting a record that does not exist is a no-op.
func (c *GormCollection[T]) Delete(ctx context.Context, owner, id uuid.UUID) error {
	result := c.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		Delete(new(T))
	if result.Error != nil {
		return fmt.Errorf("delete %s %s: %w", c.name, id, result.Error)
	}

	if result.RowsAffected > 0 {
		c.notify(ctx, owner)
	}
	return nil
}

func (c *GormCollection[T]) Get(ctx context.Context, owner, id uuid.UUID) (T, error) {
	var rec T
	err := c.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, owner).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("get %s %s: %w", c.name, id, err)
	}
	return rec, nil
}

func (c *GormCollection[T]) List(ctx context.Context, owner uuid.UUID) ([]T, error) {
	records := make([]T, 0)
	err := c.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	return records, nil
}

// Subscribe delivers an initial snapshot, then a fresh snapshot after every
// change to the owner's records. Deliveries to fn are serial.
func (c *GormCollection[T]) Subscribe(ctx context.Context, owner uuid.UUID, fn SnapshotFunc[T]) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	signals, err := c.feed.Watch(ctx, c.topic(owner))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", c.name, err)
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	refresh := func() {
		records, err := c.List(ctx, owner)
		if sub.deliver(func() { fn(records, err) }) {
			monitoring.RecordSnapshot(c.name, err)
		}
	}

	go func() {
		defer close(sub.done)

		refresh()
		for range signals {
			if ctx.Err() != nil {
				return
			}
			refresh()
		}
	}()

	return sub, nil
}

// Subscription is a live snapshot stream. Once Unsubscribe returns no
// further snapshots are delivered. Unsubscribe must not be called from
// inside the snapshot callback.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
}

func (s *Subscription) deliver(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	fn()
	return true
}

func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
}

// Done is closed when the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
