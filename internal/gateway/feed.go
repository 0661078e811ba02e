package gateway

import (
	"context"
	"sync"
)

// Notifier carries "collection changed" signals between writers and
// subscribers. Signals carry no payload; subscribers re-query.
type Notifier interface {
	Publish(ctx context.Context, topic string) error
	// Watch returns a channel that receives a signal after every Publish on
	// topic. Bursts may coalesce into one signal. The channel is closed once
	// ctx is done.
	Watch(ctx context.Context, topic string) (<-chan struct{}, error)
	Close() error
}

type MemoryFeed struct {
	mu       sync.Mutex
	watchers map[string]map[chan struct{}]struct{}
	closed   bool
}

var _ Notifier = (*MemoryFeed)(nil)

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{watchers: make(map[string]map[chan struct{}]struct{})}
}

func (f *MemoryFeed) Publish(ctx context.Context, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.watchers[topic] {
		signal(ch)
	}
	return nil
}

func (f *MemoryFeed) Watch(ctx context.Context, topic string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch, nil
	}
	if f.watchers[topic] == nil {
		f.watchers[topic] = make(map[chan struct{}]struct{})
	}
	f.watchers[topic][ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.remove(topic, ch)
	}()

	return ch, nil
}

func (f *MemoryFeed) remove(topic string, ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.watchers[topic][ch]; !ok {
		return
	}
	delete(f.watchers[topic], ch)
	if len(f.watchers[topic]) == 0 {
		delete(f.watchers, topic)
	}
	close(ch)
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for topic, set := range f.watchers {
		for ch := range set {
			close(ch)
		}
		delete(f.watchers, topic)
	}
	return nil
}

// signal never blocks; a pending signal already covers this change.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
