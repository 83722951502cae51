// Package guard limits how often one owner can write plans.
package guard

import (
	"sync"
	"time"

	"github.com/dietplan/engine/internal/domain"
)

const window = 60 * time.Second

// Guard enforces a per-key fixed window rate limit.
type Guard struct {
	RateLimitPerMinute int
	Clock              func() time.Time

	mu         sync.Mutex
	rateCounts map[string]*rateBucket
}

type rateBucket struct {
	count       int
	windowStart time.Time
}

// NewGuard creates a Guard allowing limit writes per key per minute.
// A non-positive limit disables the check.
func NewGuard(limit int) *Guard {
	return &Guard{
		RateLimitPerMinute: limit,
		Clock:              time.Now,
		rateCounts:         make(map[string]*rateBucket),
	}
}

// CheckRateLimit counts one write for key. If the count within the current
// 60 second window would exceed the limit, ErrRateLimitExceeded is returned
// and nothing is counted. A nil Guard allows everything.
func (g *Guard) CheckRateLimit(key string) error {
	if g == nil || g.RateLimitPerMinute <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.Clock()
	bucket, ok := g.rateCounts[key]
	if !ok {
		g.rateCounts[key] = &rateBucket{count: 1, windowStart: now}
		return nil
	}

	if now.Sub(bucket.windowStart) >= window {
		bucket.count = 1
		bucket.windowStart = now
		return nil
	}

	if bucket.count >= g.RateLimitPerMinute {
		return domain.ErrRateLimitExceeded
	}

	bucket.count++
	return nil
}

// Prune drops buckets whose window has expired.
func (g *Guard) Prune() {
	if g == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.Clock()
	for k, b := range g.rateCounts {
		if now.Sub(b.windowStart) >= window {
			delete(g.rateCounts, k)
		}
	}
}
