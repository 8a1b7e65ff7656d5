// Package identity provides the in-process reference implementation of
// core.PrincipalStore: a mutex-guarded map whose AddPrincipal is a single
// check-then-insert critical section, satisfying §4.5's atomic-registration
// requirement without external storage.
package identity

import (
	"context"
	"sync"

	"github.com/goliatone/go-poto/core"
)

// MemoryPrincipalStore is a process-wide core.PrincipalStore backend,
// grounded on session.MemoryStore's single-mutex shape: one lock guards the
// whole map, so AddPrincipal's existence check and insert happen inside one
// critical section and many concurrent anonymous logins each land a
// distinct, exactly-once registration.
type MemoryPrincipalStore struct {
	mu         sync.Mutex
	principals map[string]core.Principal
}

// NewMemoryPrincipalStore builds an empty store.
func NewMemoryPrincipalStore() *MemoryPrincipalStore {
	return &MemoryPrincipalStore{principals: map[string]core.Principal{}}
}

func (s *MemoryPrincipalStore) FindPrincipal(_ context.Context, userID string) (*core.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	principal, ok := s.principals[userID]
	if !ok {
		return nil, nil
	}
	return &principal, nil
}

// AddPrincipal reports true only when principal.ID() was not already
// registered; the check and the insert happen under the same lock.
func (s *MemoryPrincipalStore) AddPrincipal(_ context.Context, principal core.Principal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.principals[principal.ID()]; exists {
		return false, nil
	}
	s.principals[principal.ID()] = principal
	return true, nil
}

var _ core.PrincipalStore = (*MemoryPrincipalStore)(nil)
