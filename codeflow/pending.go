package codeflow

import (
	"errors"
	"sync"
	"time"
)

// PendingAuthorization is what is remembered between building an authorize
// URL and receiving its callback.
type PendingAuthorization struct {
	CodeVerifier *string
	RedirectURI  string
	CreatedAt    time.Time
}

// PendingRepo stores pending authorizations keyed by state.
type PendingRepo interface {
	Upsert(state string, pending *PendingAuthorization) error
	Get(state string) (*PendingAuthorization, error)
	Delete(state string) error
}

var ErrPendingNotFound = errors.New("pending authorization not found")

// InMemoryPendingRepo is a thread-safe in-memory PendingRepo.
type InMemoryPendingRepo struct {
	mu     sync.RWMutex
	states map[string]*PendingAuthorization
}

func NewInMemoryPendingRepo() *InMemoryPendingRepo {
	return &InMemoryPendingRepo{
		states: make(map[string]*PendingAuthorization),
	}
}

func (r *InMemoryPendingRepo) Upsert(state string, pending *PendingAuthorization) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if pending == nil {
		return errors.New("pending authorization cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *pending
	r.states[state] = &stored
	return nil
}

func (r *InMemoryPendingRepo) Get(state string) (*PendingAuthorization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending, exists := r.states[state]
	if !exists {
		return nil, ErrPendingNotFound
	}
	out := *pending
	return &out, nil
}

func (r *InMemoryPendingRepo) Delete(state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

// Purge drops entries created before cutoff.
func (r *InMemoryPendingRepo) Purge(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, pending := range r.states {
		if pending.CreatedAt.Before(cutoff) {
			delete(r.states, state)
			removed++
		}
	}
	return removed
}

func (r *InMemoryPendingRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
