package ledger

import "context"

// Store is the storage collaborator. Implementations must make Persist atomic
// for the whole batch and return sentinel.ErrConflict when a sequence number
// is already taken.
type Store interface {
	Persist(ctx context.Context, entries ...Entry) error
	// LoadHead returns the most recently committed entry, or nil when empty.
	LoadHead(ctx context.Context) (*Entry, error)
	// Query returns matching entries in ascending sequence order.
	Query(ctx context.Context, filter Filter) ([]Entry, error)
}

// Filter narrows Query. Zero values mean "no constraint".
type Filter struct {
	ResourceType string
	ResourceID   string
	Actions      []string
	FromSequence int64
	ToSequence   *int64
	Limit        int
}

// Matches reports whether e satisfies the filter, ignoring Limit.
func (f Filter) Matches(e Entry) bool {
	if e.Sequence < f.FromSequence {
		return false
	}
	if f.ToSequence != nil && e.Sequence > *f.ToSequence {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if len(f.Actions) > 0 {
		for _, a := range f.Actions {
			if e.Action == a {
				return true
			}
		}
		return false
	}
	return true
}

// Locker provides mutual exclusion across processes sharing one store.
// The in-process mutex is always held as well.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}
