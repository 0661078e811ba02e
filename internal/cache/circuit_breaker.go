package cache

import (
	"errors"
	"sync"
	"time"

	"zenfocus/backend/internal/monitoring"
)

type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half-open"
)

var ErrBreakerOpen = errors.New("shared cache breaker is open")

// BreakerConfig tunes when the shared cache is taken out of the read path.
// After Cooldown one probe call is let through; its outcome decides
// whether the breaker closes or stays open for another Cooldown.
type BreakerConfig struct {
	Threshold int
	Cooldown  time.Duration

	OnChange func(from, to BreakerState)
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second}
}

// Breaker guards the Redis level of the offline cache. While it is open,
// callers fall back to process memory.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	onChange  func(from, to BreakerState)
	now       func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
	trips    int64
}

type BreakerStats struct {
	State    BreakerState `json:"state"`
	Failures int          `json:"consecutive_failures"`
	Trips    int64        `json:"trips"`
	OpenedAt *time.Time   `json:"opened_at,omitempty"`
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	monitoring.SharedCacheOnline.Set(1)
	return &Breaker{
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		onChange:  cfg.OnChange,
		now:       time.Now,
		state:     BreakerClosed,
	}
}

// Do runs fn unless the breaker is open. A cache miss is a healthy answer
// and never counts as a failure.
func (b *Breaker) Do(fn func() error) error {
	probe, ok := b.admit()
	if !ok {
		return ErrBreakerOpen
	}

	err := fn()
	b.settle(probe, err == nil || errors.Is(err, ErrCacheMiss))
	return err
}

func (b *Breaker) admit() (probe bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false, false
		}
		b.setState(BreakerHalfOpen)
		b.probing = true
		return true, true
	case BreakerHalfOpen:
		if b.probing {
			return false, false
		}
		b.probing = true
		return true, true
	default:
		return false, true
	}
}

func (b *Breaker) settle(probe, healthy bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
	}
	if healthy {
		b.failures = 0
		if probe {
			b.setState(BreakerClosed)
		}
		return
	}

	b.failures++
	if probe || b.failures >= b.threshold {
		b.trip()
	}
}

// trip opens the breaker. Only a closed→open transition counts as a trip;
// a failed probe just restarts the cooldown.
func (b *Breaker) trip() {
	b.openedAt = b.now()
	if b.state == BreakerClosed {
		b.trips++
	}
	b.setState(BreakerOpen)
}

// setState must be called with mu held.
func (b *Breaker) setState(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if to == BreakerClosed {
		monitoring.SharedCacheOnline.Set(1)
	} else {
		monitoring.SharedCacheOnline.Set(0)
	}
	if b.onChange != nil {
		b.onChange(from, to)
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := BreakerStats{State: b.state, Failures: b.failures, Trips: b.trips}
	if b.state != BreakerClosed {
		opened := b.openedAt
		s.OpenedAt = &opened
	}
	return s
}
