package bucket

import (
	"context"
	"fmt"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"ledgerguard/internal/ratelimit/models"
	"ledgerguard/pkg/platform/clock"
)

// RedisBucketStore shares request budgets across replicas. redis_rate runs
// GCRA in a Lua script, so a window of N requests refills continuously
// instead of resetting at the boundary.
type RedisBucketStore struct {
	limiter *redis_rate.Limiter
	clock   clock.Clock
}

func NewRedisBucketStore(client *redis.Client, clk clock.Clock) *RedisBucketStore {
	if clk == nil {
		clk = clock.System{}
	}
	return &RedisBucketStore{limiter: redis_rate.NewLimiter(client), clock: clk}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error) {
	res, err := s.limiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit.Requests,
		Burst:  limit.Requests,
		Period: limit.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit %s: %w", key, err)
	}

	now := s.clock.Now()
	result := &models.RateLimitResult{
		Allowed:   res.Allowed > 0,
		Limit:     limit.Requests,
		Remaining: res.Remaining,
		ResetAt:   now.Add(res.ResetAfter),
	}
	if !result.Allowed {
		result.RetryAfter = retryAfterSeconds(res.RetryAfter)
	}
	return result, nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	return s.limiter.Reset(ctx, key)
}
