package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ledgerguard/internal/ledger"
	"ledgerguard/internal/ledger/store/memory"
	id "ledgerguard/pkg/domain"
	dErrors "ledgerguard/pkg/domain-errors"
	"ledgerguard/pkg/platform/clock"
	"ledgerguard/pkg/platform/sentinel"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func draft(resourceID string) ledger.Draft {
	return ledger.Draft{
		ActorID:      id.ActorID("auditor-1"),
		Action:       "COMPLIANCE_CHECK_PERFORMED",
		ResourceType: "compliance_check",
		ResourceID:   resourceID,
		After:        json.RawMessage(`{"outcome":"PASSED","violations":0}`),
	}
}

type LedgerSuite struct {
	suite.Suite
	store  *memory.InMemoryStore
	clock  *clock.Manual
	ledger *ledger.Ledger
	ctx    context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.clock = clock.NewManual(epoch)
	s.ledger = ledger.New(s.store, s.clock)
	s.ctx = context.Background()
}

func (s *LedgerSuite) TestAppend() {
	s.Run("first entry links to genesis", func() {
		e, err := s.ledger.Append(s.ctx, ledger.GenesisDigest, draft("c-1"))
		s.Require().NoError(err)
		s.Equal(int64(0), e.Sequence)
		s.Equal(ledger.GenesisDigest, e.PrevDigest)
		s.Len(string(e.Digest), 64)
		s.Equal(epoch, e.Timestamp)
	})

	s.Run("next entry links to previous digest", func() {
		head, err := s.ledger.Head(s.ctx)
		s.Require().NoError(err)

		s.clock.Advance(time.Minute)
		e, err := s.ledger.Append(s.ctx, head.Digest, draft("c-2"))
		s.Require().NoError(err)
		s.Equal(int64(1), e.Sequence)
		s.Equal(head.Digest, e.PrevDigest)
	})

	s.Run("stale predecessor is a conflict and nothing is written", func() {
		_, err := s.ledger.Append(s.ctx, ledger.GenesisDigest, draft("c-3"))
		var conflict *ledger.ConcurrentAppendConflict
		s.Require().ErrorAs(err, &conflict)
		s.ErrorIs(err, sentinel.ErrConflict)
		s.Equal(2, s.store.Len())
	})

	s.Run("draft without actor is rejected", func() {
		d := draft("c-4")
		d.ActorID = ""
		head, _ := s.ledger.Head(s.ctx)
		_, err := s.ledger.Append(s.ctx, ledger.HeadDigest(head), d)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("malformed payload is rejected", func() {
		d := draft("c-5")
		d.After = json.RawMessage(`{"unterminated":`)
		head, _ := s.ledger.Head(s.ctx)
		_, err := s.ledger.Append(s.ctx, ledger.HeadDigest(head), d)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *LedgerSuite) TestAppendUnitIsContiguous() {
	entries, err := s.ledger.AppendUnit(s.ctx, ledger.GenesisDigest, draft("c-1"), draft("v-1"), draft("v-2"))
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	for i := 1; i < len(entries); i++ {
		s.Equal(entries[i-1].Digest, entries[i].PrevDigest)
		s.Equal(int64(i), entries[i].Sequence)
	}

	result, err := s.ledger.Verify(s.ctx, 0, -1)
	s.Require().NoError(err)
	s.True(result.Valid)
	s.Equal(3, result.Checked)
}

func (s *LedgerSuite) TestAppendWithRetryRebuildsOnConflict() {
	var builds int
	entries, err := s.ledger.AppendWithRetry(s.ctx, func(ctx context.Context, head *ledger.Entry) ([]ledger.Draft, error) {
		builds++
		if builds == 1 {
			// A competing writer lands between our head read and our append.
			_, err := s.ledger.Append(ctx, ledger.HeadDigest(head), draft("competitor"))
			s.Require().NoError(err)
		}
		return []ledger.Draft{draft("mine")}, nil
	})
	s.Require().NoError(err)
	s.Equal(2, builds)
	s.Equal(int64(1), entries[0].Sequence)
}

func (s *LedgerSuite) TestAppendWithRetryGivesUp() {
	l := ledger.New(s.store, s.clock, ledger.WithMaxAttempts(2))
	_, err := l.AppendWithRetry(s.ctx, func(ctx context.Context, head *ledger.Entry) ([]ledger.Draft, error) {
		_, err := l.Append(ctx, ledger.HeadDigest(head), draft("competitor"))
		s.Require().NoError(err)
		return []ledger.Draft{draft("mine")}, nil
	})
	var conflict *ledger.ConcurrentAppendConflict
	s.ErrorAs(err, &conflict)
}

func (s *LedgerSuite) TestAppendWithRetryDoesNotRetryBuildErrors() {
	boom := errors.New("projection failed")
	var builds int
	_, err := s.ledger.AppendWithRetry(s.ctx, func(context.Context, *ledger.Entry) ([]ledger.Draft, error) {
		builds++
		return nil, boom
	})
	s.ErrorIs(err, boom)
	s.Equal(1, builds)
}

// Two callers race on the same head: exactly one wins without retry, the
// other is told the head moved.
func TestConcurrentAppend_ExactlyOneSucceeds(t *testing.T) {
	for round := 0; round < 50; round++ {
		store := memory.NewInMemoryStore()
		l := ledger.New(store, clock.NewManual(epoch))
		ctx := context.Background()

		seed, err := l.Append(ctx, ledger.GenesisDigest, draft("seed"))
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			start     = make(chan struct{})
			successes atomic.Int32
			conflicts atomic.Int32
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				<-start
				_, err := l.Append(ctx, seed.Digest, draft("racer"))
				var conflict *ledger.ConcurrentAppendConflict
				switch {
				case err == nil:
					successes.Add(1)
				case errors.As(err, &conflict):
					conflicts.Add(1)
				default:
					t.Errorf("racer %d: unexpected error: %v", n, err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), successes.Load(), "exactly one append should succeed")
		assert.Equal(t, int32(1), conflicts.Load(), "the other append should conflict")
		assert.Equal(t, 2, store.Len())
	}
}

type failingStore struct {
	*memory.InMemoryStore
	err error
}

func (f *failingStore) Persist(context.Context, ...ledger.Entry) error { return f.err }

func TestAppendUnit_PersistFailureLeavesHeadUnchanged(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewInMemoryStore()
	ok := ledger.New(inner, clock.NewManual(epoch))
	seed, err := ok.Append(ctx, ledger.GenesisDigest, draft("seed"))
	require.NoError(t, err)

	broken := ledger.New(&failingStore{InMemoryStore: inner, err: errors.New("disk full")}, clock.NewManual(epoch))
	_, err = broken.AppendUnit(ctx, seed.Digest, draft("c"), draft("v1"), draft("v2"))
	require.Error(t, err)

	head, err := ok.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, seed.Digest, head.Digest)
	assert.Equal(t, 1, inner.Len())
}

func TestAppend_StoreConflictIsConcurrentAppendConflict(t *testing.T) {
	store := &failingStore{InMemoryStore: memory.NewInMemoryStore(), err: sentinel.ErrConflict}
	l := ledger.New(store, clock.NewManual(epoch))

	_, err := l.Append(context.Background(), ledger.GenesisDigest, draft("c"))
	var conflict *ledger.ConcurrentAppendConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestAppend_TimestampTruncatedToMicroseconds(t *testing.T) {
	l := ledger.New(memory.NewInMemoryStore(), clock.NewManual(epoch.Add(1234567*time.Nanosecond)))
	e, err := l.Append(context.Background(), ledger.GenesisDigest, draft("c"))
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(1234*time.Microsecond), e.Timestamp)
}
