package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"ledgerguard/internal/ledger"
	"ledgerguard/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func entry(seq int64, resourceType, resourceID, action string) ledger.Entry {
	return ledger.Entry{
		Sequence:     seq,
		ActorID:      "auditor",
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		After:        json.RawMessage(`{"n":1}`),
	}
}

func (s *InMemoryStoreSuite) TestPersist() {
	s.Run("empty store has no head", func() {
		head, err := s.store.LoadHead(s.ctx)
		s.Require().NoError(err)
		s.Nil(head)
	})

	s.Run("batch continues the chain", func() {
		err := s.store.Persist(s.ctx, entry(0, "check", "a", "X"), entry(1, "violation", "b", "Y"))
		s.Require().NoError(err)

		head, err := s.store.LoadHead(s.ctx)
		s.Require().NoError(err)
		s.Equal(int64(1), head.Sequence)
	})

	s.Run("taken sequence is a conflict and nothing is stored", func() {
		err := s.store.Persist(s.ctx, entry(2, "check", "c", "X"), entry(1, "check", "d", "X"))
		s.ErrorIs(err, sentinel.ErrConflict)
		s.Equal(2, s.store.Len())
	})
}

func (s *InMemoryStoreSuite) TestCommittedEntriesAreCopies() {
	s.Require().NoError(s.store.Persist(s.ctx, entry(0, "check", "a", "X")))

	got, err := s.store.Query(s.ctx, ledger.Filter{})
	s.Require().NoError(err)
	got[0].After[2] = 'm'
	got[0].Action = "TAMPERED"

	again, err := s.store.Query(s.ctx, ledger.Filter{})
	s.Require().NoError(err)
	s.Equal("X", again[0].Action)
	s.JSONEq(`{"n":1}`, string(again[0].After))
}

func (s *InMemoryStoreSuite) TestQuery() {
	s.Require().NoError(s.store.Persist(s.ctx,
		entry(0, "check", "a", "CHECK"),
		entry(1, "violation", "v1", "DETECTED"),
		entry(2, "violation", "v2", "DETECTED"),
		entry(3, "violation", "v1", "RESOLVED"),
	))

	s.Run("by resource", func() {
		got, err := s.store.Query(s.ctx, ledger.Filter{ResourceType: "violation", ResourceID: "v1"})
		s.Require().NoError(err)
		s.Len(got, 2)
		s.Equal(int64(1), got[0].Sequence)
		s.Equal(int64(3), got[1].Sequence)
	})

	s.Run("by action", func() {
		got, err := s.store.Query(s.ctx, ledger.Filter{Actions: []string{"RESOLVED", "CHECK"}})
		s.Require().NoError(err)
		s.Len(got, 2)
	})

	s.Run("by range with limit", func() {
		to := int64(3)
		got, err := s.store.Query(s.ctx, ledger.Filter{FromSequence: 1, ToSequence: &to, Limit: 2})
		s.Require().NoError(err)
		s.Require().Len(got, 2)
		s.Equal(int64(1), got[0].Sequence)
		s.Equal(int64(2), got[1].Sequence)
	})
}
