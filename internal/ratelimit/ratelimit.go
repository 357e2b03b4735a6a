// Package ratelimit guards externally reachable operations with
// per-(route class, identity) token buckets. The limiter rejects before
// the guarded operation touches any state.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RouteClass string

const (
	RouteIntake        RouteClass = "intake"
	RoutePull          RouteClass = "executor_pull"
	RouteAck           RouteClass = "executor_ack"
	RouteCampaignWrite RouteClass = "campaign_write"
)

// Budget is the refill rate and burst of one route class.
type Budget struct {
	PerSecond float64
	Burst     int
}

// DefaultBudgets reflects the relative pressure each route sees: intake is
// the load-tested hot path, executor polling is frequent but cheap, and
// campaign writes are human-paced.
func DefaultBudgets() map[RouteClass]Budget {
	return map[RouteClass]Budget{
		RouteIntake:        {PerSecond: 50, Burst: 100},
		RoutePull:          {PerSecond: 2, Burst: 5},
		RouteAck:           {PerSecond: 10, Burst: 20},
		RouteCampaignWrite: {PerSecond: 1, Burst: 3},
	}
}

// Limiter keeps one token bucket per (route class, identity) pair.
type Limiter struct {
	mu      sync.Mutex
	budgets map[RouteClass]Budget
	buckets map[string]*rate.Limiter
	now     func() time.Time
}

func New(budgets map[RouteClass]Budget) *Limiter {
	return &Limiter{
		budgets: budgets,
		buckets: make(map[string]*rate.Limiter),
		now:     time.Now,
	}
}

// Allow reports whether the call may proceed. When it may not, retryAfter
// carries the wait that would make the next identical call pass.
func (l *Limiter) Allow(class RouteClass, identity string) (bool, time.Duration) {
	l.mu.Lock()
	key := string(class) + "|" + identity
	bucket, ok := l.buckets[key]
	if !ok {
		b, known := l.budgets[class]
		if !known {
			l.mu.Unlock()
			return true, 0
		}
		bucket = rate.NewLimiter(rate.Limit(b.PerSecond), b.Burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	res := bucket.ReserveN(l.now(), 1)
	if !res.OK() {
		return false, time.Second
	}
	delay := res.DelayFrom(l.now())
	if delay > 0 {
		// Not taking the token; the caller is being told to come back.
		res.CancelAt(l.now())
		return false, delay
	}
	return true, 0
}
