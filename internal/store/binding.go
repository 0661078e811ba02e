package store

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/logger"
)

// binding keeps a Mirror in step with a collection subscription.
type binding[T gateway.Record] struct {
	coll     gateway.Collection[T]
	mirror   *Mirror[T]
	onChange func()

	mu  sync.Mutex
	sub *gateway.Subscription
	gen uint64
}

func newBinding[T gateway.Record](coll gateway.Collection[T], mirror *Mirror[T], onChange func()) *binding[T] {
	return &binding[T]{coll: coll, mirror: mirror, onChange: onChange}
}

func (b *binding[T]) start(ctx context.Context, owner uuid.UUID) error {
	b.mu.Lock()
	if b.sub != nil {
		b.mu.Unlock()
		return nil
	}
	b.gen++
	gen := b.gen
	b.mu.Unlock()

	sub, err := b.coll.Subscribe(ctx, owner, func(records []T, err error) {
		if err != nil {
			logger.Error("subscription failed", "collection", b.coll.Name(), "error", syncErr(OpSubscribe, err))
			return
		}
		if !b.live(gen) {
			return
		}
		b.mirror.ReplaceAll(records)
		if b.onChange != nil {
			b.onChange()
		}
	})
	if err != nil {
		return syncErr(OpSubscribe, err)
	}

	b.mu.Lock()
	if b.gen != gen {
		// stopped while subscribing
		b.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	b.sub = sub
	b.mu.Unlock()
	return nil
}

func (b *binding[T]) live(gen uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen == gen
}

// stop cancels the subscription and empties the mirror. No snapshot is
// applied after stop returns.
func (b *binding[T]) stop() {
	b.mu.Lock()
	b.gen++
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	b.mirror.Clear()
}
