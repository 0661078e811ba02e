package store

import (
	"sync"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/gateway"
)

// Mirror is an in-memory copy of one owner-scoped collection. Every
// snapshot replaces its entire contents.
type Mirror[T gateway.Record] struct {
	mu    sync.RWMutex
	order []uuid.UUID
	byID  map[uuid.UUID]T
}

func NewMirror[T gateway.Record]() *Mirror[T] {
	return &Mirror[T]{byID: make(map[uuid.UUID]T)}
}

func (m *Mirror[T]) ReplaceAll(records []T) {
	order := make([]uuid.UUID, 0, len(records))
	byID := make(map[uuid.UUID]T, len(records))
	for _, r := range records {
		id := r.RecordID()
		if _, dup := byID[id]; !dup {
			order = append(order, id)
		}
		byID[id] = r
	}

	m.mu.Lock()
	m.order = order
	m.byID = byID
	m.mu.Unlock()
}

func (m *Mirror[T]) Clear() {
	m.ReplaceAll(nil)
}

func (m *Mirror[T]) Get(id uuid.UUID) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	return r, ok
}

// Snapshot returns the records in the order the last snapshot listed them.
func (m *Mirror[T]) Snapshot() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

func (m *Mirror[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

func (m *Mirror[T]) Where(keep func(T) bool) []T {
	all := m.Snapshot()
	out := make([]T, 0, len(all))
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
