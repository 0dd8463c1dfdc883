package ledger

import (
	"fmt"

	"ledgerguard/pkg/platform/sentinel"
)

// ChainIntegrityError reports stored data that no longer matches the chain.
// It is never repaired automatically.
type ChainIntegrityError struct {
	Sequence int64
	Reason   string
	Expected Digest
	Actual   Digest
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("ledger integrity failure at sequence %d: %s", e.Sequence, e.Reason)
}

func (e *ChainIntegrityError) Unwrap() error { return sentinel.ErrIntegrity }

// ConcurrentAppendConflict reports that the head moved since the caller read
// it. Re-read the head and reapply.
type ConcurrentAppendConflict struct {
	Expected Digest
	Actual   Digest
}

func (e *ConcurrentAppendConflict) Error() string {
	if e.Actual == "" {
		return fmt.Sprintf("ledger head moved: expected predecessor %s was superseded", short(e.Expected))
	}
	return fmt.Sprintf("ledger head moved: expected predecessor %s, head is %s", short(e.Expected), short(e.Actual))
}

func (e *ConcurrentAppendConflict) Unwrap() error { return sentinel.ErrConflict }

func short(d Digest) string {
	if len(d) > 12 {
		return string(d[:12])
	}
	return string(d)
}
