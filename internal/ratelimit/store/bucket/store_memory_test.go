package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgerguard/internal/ratelimit/models"
	"ledgerguard/pkg/platform/clock"
)

var testLimit = models.Limit{Requests: 3, Window: time.Minute}

type InMemoryBucketStoreSuite struct {
	suite.Suite
	clock *clock.Manual
	store *InMemoryBucketStore
	ctx   context.Context
}

func TestInMemoryBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBucketStoreSuite))
}

func (s *InMemoryBucketStoreSuite) SetupTest() {
	s.clock = clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	s.store = NewInMemoryBucketStore(s.clock)
	s.ctx = context.Background()
}

func (s *InMemoryBucketStoreSuite) TestAllow() {
	s.Run("first request allowed", func() {
		result, err := s.store.Allow(s.ctx, "first", testLimit)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit.Requests, result.Limit)
		s.Equal(testLimit.Requests-1, result.Remaining)
		s.Equal(s.clock.Now().Add(time.Minute), result.ResetAt)
	})

	s.Run("request over limit denied with retry hint", func() {
		for range testLimit.Requests {
			result, err := s.store.Allow(s.ctx, "over", testLimit)
			s.Require().NoError(err)
			s.True(result.Allowed)
		}
		s.clock.Advance(20 * time.Second)

		result, err := s.store.Allow(s.ctx, "over", testLimit)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(40, result.RetryAfter)
	})

	s.Run("window slides", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "slide", testLimit)
			s.Require().NoError(err)
		}
		s.clock.Advance(testLimit.Window + time.Second)

		result, err := s.store.Allow(s.ctx, "slide", testLimit)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit.Requests-1, result.Remaining)
	})

	s.Run("keys are independent", func() {
		for range testLimit.Requests {
			_, err := s.store.Allow(s.ctx, "a", testLimit)
			s.Require().NoError(err)
		}
		result, err := s.store.Allow(s.ctx, "b", testLimit)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryBucketStoreSuite) TestReset() {
	for range testLimit.Requests {
		_, err := s.store.Allow(s.ctx, "reset", testLimit)
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.Reset(s.ctx, "reset"))

	result, err := s.store.Allow(s.ctx, "reset", testLimit)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
