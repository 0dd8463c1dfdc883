// Package lock provides cross-process exclusion for ledger appends when
// several replicas write to one shared chain.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ledgerguard/pkg/platform/sentinel"
)

const (
	defaultTTL   = 5 * time.Second
	defaultWait  = 2 * time.Second
	defaultRetry = 25 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token, so an
// expired holder can never release a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements ledger.Locker with SET NX PX and a token-checked
// release.
type RedisLocker struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// Option configures a RedisLocker.
type Option func(*RedisLocker)

// WithTTL sets how long a held lock survives a crashed holder.
func WithTTL(d time.Duration) Option {
	return func(l *RedisLocker) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithWait bounds how long Lock waits before giving up.
func WithWait(d time.Duration) Option {
	return func(l *RedisLocker) {
		if d > 0 {
			l.wait = d
		}
	}
}

func NewRedisLocker(client *redis.Client, key string, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		client: client,
		key:    key,
		ttl:    defaultTTL,
		wait:   defaultWait,
		retry:  defaultRetry,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until the lock is held or the wait bound expires. Expiry is
// reported as sentinel.ErrUnavailable.
func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(waitCtx, l.key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire %s: %w", l.key, err)
		}
		if ok {
			return func() {
				// Release must run even if the caller's context was cancelled.
				_ = releaseScript.Run(context.Background(), l.client, []string{l.key}, token).Err()
			}, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("acquire %s within %s: %w", l.key, l.wait, sentinel.ErrUnavailable)
		case <-time.After(l.retry):
		}
	}
}
