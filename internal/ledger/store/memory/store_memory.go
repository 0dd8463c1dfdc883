package memory

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"ledgerguard/internal/ledger"
	"ledgerguard/pkg/platform/sentinel"
)

// InMemoryStore keeps the chain in a slice indexed by sequence. Entries are
// copied on the way in and out so callers cannot mutate committed data.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []ledger.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Persist appends entries atomically. The batch must continue the chain
// exactly; otherwise nothing is stored and sentinel.ErrConflict is returned.
func (s *InMemoryStore) Persist(_ context.Context, entries ...ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := int64(len(s.entries))
	for i, e := range entries {
		if e.Sequence != next+int64(i) {
			return fmt.Errorf("sequence %d: %w", e.Sequence, sentinel.ErrConflict)
		}
	}
	for _, e := range entries {
		s.entries = append(s.entries, clone(e))
	}
	return nil
}

func (s *InMemoryStore) LoadHead(_ context.Context) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, nil
	}
	head := clone(s.entries[len(s.entries)-1])
	return &head, nil
}

func (s *InMemoryStore) Query(_ context.Context, filter ledger.Filter) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := filter.FromSequence
	if start < 0 {
		start = 0
	}
	var out []ledger.Entry
	for i := start; i < int64(len(s.entries)); i++ {
		e := s.entries[i]
		if filter.ToSequence != nil && e.Sequence > *filter.ToSequence {
			break
		}
		if !filter.Matches(e) {
			continue
		}
		out = append(out, clone(e))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of committed entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func clone(e ledger.Entry) ledger.Entry {
	e.Before = bytes.Clone(e.Before)
	e.After = bytes.Clone(e.After)
	e.Changes = bytes.Clone(e.Changes)
	return e
}
