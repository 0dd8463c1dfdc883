//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"ledgerguard/internal/ledger"
	"ledgerguard/internal/ledger/store/postgres"
	"ledgerguard/internal/platform/db"
	id "ledgerguard/pkg/domain"
	"ledgerguard/pkg/platform/clock"
	"ledgerguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg     *containers.PostgresContainer
	ledger *ledger.Ledger
	ctx    context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(db.RunMigrations(s.pg.DB, "up"))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(db.RunMigrations(s.pg.DB, "down"))
	s.Require().NoError(db.RunMigrations(s.pg.DB, "up"))
	s.ledger = ledger.New(postgres.New(s.pg.DB), clock.System{})
}

func check(resourceID string) ledger.Draft {
	return ledger.Draft{
		ActorID:      id.ActorID("auditor-1"),
		Action:       "COMPLIANCE_CHECK_PERFORMED",
		ResourceType: "compliance_check",
		ResourceID:   resourceID,
		After:        json.RawMessage(`{"outcome": "PASSED", "amount": "100.10"}`),
	}
}

func (s *PostgresStoreSuite) TestRoundTripVerifies() {
	for i := 0; i < 3; i++ {
		head, err := s.ledger.Head(s.ctx)
		s.Require().NoError(err)
		_, err = s.ledger.AppendUnit(s.ctx, ledger.HeadDigest(head), check("c"), check("d"))
		s.Require().NoError(err)
	}

	result, err := s.ledger.Verify(s.ctx, 0, -1)
	s.Require().NoError(err)
	s.True(result.Valid)
	s.Equal(6, result.Checked)

	entries, err := s.ledger.Query(s.ctx, ledger.Filter{ResourceID: "d"})
	s.Require().NoError(err)
	s.Len(entries, 3)
	s.JSONEq(`{"outcome": "PASSED", "amount": "100.10"}`, string(entries[0].After))
}

func (s *PostgresStoreSuite) TestConcurrentWritersStayLinear() {
	const writers = 6
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			other := ledger.New(postgres.New(s.pg.DB), clock.System{}, ledger.WithMaxAttempts(20))
			_, errs[i] = other.AppendWithRetry(s.ctx, func(context.Context, *ledger.Entry) ([]ledger.Draft, error) {
				return []ledger.Draft{check("w")}, nil
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		s.NoError(err)
	}

	result, err := s.ledger.Verify(s.ctx, 0, -1)
	s.Require().NoError(err)
	s.Equal(writers, result.Checked)
}

func (s *PostgresStoreSuite) TestEntriesAreImmutable() {
	_, err := s.ledger.Append(s.ctx, ledger.GenesisDigest, check("c"))
	s.Require().NoError(err)

	_, err = s.pg.DB.ExecContext(s.ctx, `UPDATE ledger_entries SET actor_id = 'mallory'`)
	s.Error(err)
	_, err = s.pg.DB.ExecContext(s.ctx, `DELETE FROM ledger_entries`)
	s.Error(err)

	version, dirty, err := db.MigrationVersion(s.pg.DB)
	s.Require().NoError(err)
	s.Equal(uint(1), version)
	s.False(dirty)
}
