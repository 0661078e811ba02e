// Package store keeps per-identity mirrors of the synchronized collections
// and performs every write against them.
package store

import (
	"context"
	"time"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/models"
)

type Collections struct {
	Subjects gateway.Collection[models.Subject]
	Topics   gateway.Collection[models.Topic]
	Tasks    gateway.Collection[models.Task]
}

type Options struct {
	Now      func() time.Time
	OnChange func()
}

// Set is the catalog, task store and ledger of one identity.
type Set struct {
	Owner   uuid.UUID
	Catalog *Catalog
	Tasks   *Tasks
	Ledger  *Ledger
}

func New(owner uuid.UUID, cols Collections, stats gateway.StatsStore, opts Options) *Set {
	taskMirror := NewMirror[models.Task]()
	catalog := NewCatalog(owner, cols, taskMirror, opts.OnChange)
	ledger := NewLedger(owner, stats, opts.OnChange)
	return &Set{
		Owner:   owner,
		Catalog: catalog,
		Tasks:   NewTasks(owner, cols.Tasks, taskMirror, catalog, ledger, opts.Now, opts.OnChange),
		Ledger:  ledger,
	}
}

// Start loads stats and subscribes to all three collections. A failure
// leaves nothing subscribed.
func (s *Set) Start(ctx context.Context) error {
	if err := s.Ledger.Load(ctx); err != nil {
		return err
	}
	if err := s.Catalog.Start(ctx); err != nil {
		return err
	}
	if err := s.Tasks.Start(ctx); err != nil {
		s.Catalog.Stop()
		return err
	}
	return nil
}

// Stop ends every subscription and clears the mirrors.
func (s *Set) Stop() {
	s.Tasks.Stop()
	s.Catalog.Stop()
	s.Ledger.reset()
}
