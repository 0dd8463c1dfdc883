package middleware

import "sync"

// BreakerPolicy decides when checks move between the primary bucket store and
// the fallback. Trip consecutive primary errors move them to the fallback and
// Recover consecutive primary successes move them back.
type BreakerPolicy struct {
	Trip    int
	Recover int
}

// DefaultBreakerPolicy matches the ratelimit config defaults.
var DefaultBreakerPolicy = BreakerPolicy{Trip: 5, Recover: 3}

func (p BreakerPolicy) normalized() BreakerPolicy {
	if p.Trip < 1 {
		p.Trip = DefaultBreakerPolicy.Trip
	}
	if p.Recover < 1 {
		p.Recover = DefaultBreakerPolicy.Recover
	}
	return p
}

// verdict names whose answer a check returns.
type verdict int

const (
	usePrimary verdict = iota
	useFallback
	// passThrough lets the request through unchecked while primary errors
	// are still below the trip count.
	passThrough
)

// failover counts primary outcomes for one middleware. While degraded the
// primary is still consulted on every check so recovery can be observed.
type failover struct {
	mu        sync.Mutex
	policy    BreakerPolicy
	degraded  bool
	errors    int
	successes int
}

func newFailover(policy BreakerPolicy) *failover {
	return &failover{policy: policy.normalized()}
}

// observe records one primary outcome and reports the verdict plus whether
// it moved the failover into or out of degraded mode.
func (f *failover) observe(primaryErr error) (v verdict, flipped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if primaryErr != nil {
		f.successes = 0
		f.errors++
		switch {
		case f.degraded:
			return useFallback, false
		case f.errors >= f.policy.Trip:
			f.degraded = true
			return useFallback, true
		default:
			return passThrough, false
		}
	}

	f.errors = 0
	if !f.degraded {
		return usePrimary, false
	}
	f.successes++
	if f.successes < f.policy.Recover {
		return useFallback, false
	}
	f.degraded = false
	f.successes = 0
	return usePrimary, true
}
