package session

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/identity"
	"zenfocus/backend/internal/logger"
)

// evicter is implemented by stats stores that cache per owner.
type evicter interface {
	Evict(ctx context.Context, owner uuid.UUID) error
}

// Registry owns one State per signed-in identity.
type Registry struct {
	cfg Config

	mu          sync.Mutex
	states      map[uuid.UUID]*State
	hooks       []func(uuid.UUID, *State)
	unsubscribe func()
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg, states: make(map[uuid.UUID]*State)}
}

// Watch follows the provider's auth-state changes: sign-in initializes the
// identity's state, sign-out tears it down.
func (r *Registry) Watch(svc identity.Service) {
	unsubscribe := svc.OnAuthStateChanged(r.handle)

	r.mu.Lock()
	prev := r.unsubscribe
	r.unsubscribe = unsubscribe
	r.mu.Unlock()

	if prev != nil {
		prev()
	}
}

func (r *Registry) handle(ev identity.AuthEvent) {
	if !ev.SignedIn {
		r.Release(ev.Identity.UserID)
		return
	}
	if _, err := r.Acquire(context.Background(), ev.Identity); err != nil {
		logger.Error("failed to initialize session", "user_id", ev.Identity.UserID, "error", err)
	}
}

// OnCreate registers fn to run for every State the registry creates,
// before it is initialized.
func (r *Registry) OnCreate(fn func(uuid.UUID, *State)) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// Acquire returns the identity's State, creating and initializing it when
// needed. A bearer token can outlive the process, so requests acquire
// lazily as well. The State's subscriptions outlive ctx; they end on
// Release or Close.
func (r *Registry) Acquire(ctx context.Context, id identity.Identity) (*State, error) {
	r.mu.Lock()
	st, ok := r.states[id.UserID]
	var hooks []func(uuid.UUID, *State)
	if !ok {
		st = New(r.cfg)
		r.states[id.UserID] = st
		hooks = append(hooks, r.hooks...)
	}
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(id.UserID, st)
	}

	if err := st.Initialize(context.WithoutCancel(ctx), id); err != nil {
		if !ok {
			r.mu.Lock()
			if r.states[id.UserID] == st {
				delete(r.states, id.UserID)
			}
			r.mu.Unlock()
		}
		return nil, err
	}
	return st, nil
}

func (r *Registry) Lookup(userID uuid.UUID) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[userID]
	return st, ok
}

// Release tears down and forgets the identity's State, and drops the
// identity's cached stats.
func (r *Registry) Release(userID uuid.UUID) {
	r.mu.Lock()
	st, ok := r.states[userID]
	delete(r.states, userID)
	r.mu.Unlock()

	if ok {
		st.Teardown()
	}
	if ev, ok := r.cfg.Stats.(evicter); ok {
		if err := ev.Evict(context.Background(), userID); err != nil {
			logger.Warn("failed to evict cached stats", "user_id", userID, "error", err)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Close stops watching auth state and tears down every State.
func (r *Registry) Close() {
	r.mu.Lock()
	states := r.states
	r.states = make(map[uuid.UUID]*State)
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	for _, st := range states {
		st.Teardown()
	}
}
