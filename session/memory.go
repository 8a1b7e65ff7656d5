package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-poto/core"
)

// MemoryStore is the process-wide in-memory Session Store backend (§4.3).
// A single mutex guards the whole map; set_value's read-mutate-store is a
// single critical section under that lock, satisfying the atomicity
// invariant without needing a lock per principal.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]core.SessionRecord
	now     func() time.Time
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string]core.SessionRecord{},
		now:     time.Now,
	}
}

func (s *MemoryStore) GetSession(ctx context.Context) (*core.SessionRecord, error) {
	id, ok, err := principalID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, found := s.records[id]
	if !found {
		return nil, nil
	}
	cloned := record.Clone()
	return &cloned, nil
}

func (s *MemoryStore) SetSession(ctx context.Context, record core.SessionRecord) error {
	id, ok, err := principalID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNoContext()
	}
	record.PrincipalID = id
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	record.LastActivity = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record.Clone()
	return nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context) error {
	id, ok, err := principalID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNoContext()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) GetValue(ctx context.Context, key string) ([]byte, bool, error) {
	id, ok, err := principalID(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, found := s.records[id]
	if !found {
		return nil, false, nil
	}
	value, found := record.Data[key]
	if !found {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// SetValue reads, mutates, and stores the record as a single critical
// section under s.mu — the atomicity invariant §4.3 requires.
func (s *MemoryStore) SetValue(ctx context.Context, key string, value []byte) error {
	id, ok, err := principalID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNoContext()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	record, found := s.records[id]
	if !found {
		record = core.SessionRecord{
			PrincipalID: id,
			CreatedAt:   s.now(),
		}
	}
	if record.Data == nil {
		record.Data = map[string][]byte{}
	}
	cloned := make([]byte, len(value))
	copy(cloned, value)
	record.Data[key] = cloned
	record.LastActivity = s.now()
	s.records[id] = record
	return nil
}

func (s *MemoryStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := s.now().Add(-age)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, record := range s.records {
		if record.LastActivity.Before(cutoff) {
			delete(s.records, id)
			evicted++
		}
	}
	return evicted, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (core.SessionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return core.SessionStats{ActiveSessions: len(ids), PrincipalIDs: ids}, nil
}

var _ Store = (*MemoryStore)(nil)
