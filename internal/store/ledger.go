package store

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/monitoring"
)

const (
	XPAddTask      int64 = 5
	XPCompleteTask int64 = 20
	XPSplitTask    int64 = 10
)

const (
	ReasonAddTask      = "add_task"
	ReasonCompleteTask = "complete_task"
	ReasonSplitTask    = "split_task"
)

// Ledger tracks the identity's XP. Awards apply locally first, then the
// stored total replaces the local one once the write is acknowledged.
type Ledger struct {
	owner    uuid.UUID
	stats    gateway.StatsStore
	onChange func()

	mu sync.RWMutex
	xp int64
}

func NewLedger(owner uuid.UUID, stats gateway.StatsStore, onChange func()) *Ledger {
	return &Ledger{owner: owner, stats: stats, onChange: onChange}
}

func (l *Ledger) Load(ctx context.Context) error {
	stats, err := l.stats.Get(ctx, l.owner)
	if err != nil {
		return syncErr(OpLoadStats, err)
	}
	l.set(stats.XP)
	return nil
}

func (l *Ledger) XP() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.xp
}

func (l *Ledger) Award(ctx context.Context, reason string, amount int64) error {
	if amount <= 0 {
		return nil
	}

	l.mu.Lock()
	l.xp += amount
	l.mu.Unlock()
	l.changed()

	monitoring.RecordXP(reason, amount)

	stats, err := l.stats.AddXP(ctx, l.owner, amount)
	if err != nil {
		err = syncErr(OpAwardXP, err)
		logger.Error("failed to persist xp", "owner", l.owner, "reason", reason, "error", err)
		return err
	}
	l.set(stats.XP)
	return nil
}

func (l *Ledger) reset() {
	l.mu.Lock()
	l.xp = 0
	l.mu.Unlock()
}

func (l *Ledger) set(xp int64) {
	l.mu.Lock()
	changed := l.xp != xp
	l.xp = xp
	l.mu.Unlock()

	if changed {
		l.changed()
	}
}

func (l *Ledger) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}
