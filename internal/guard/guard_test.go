package guard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dietplan/engine/internal/domain"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestGuard(limit int) (*Guard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)}
	g := NewGuard(limit)
	g.Clock = clock.Now
	return g, clock
}

func TestCheckRateLimit(t *testing.T) {
	g, _ := newTestGuard(3)

	for i := 0; i < 3; i++ {
		require.NoError(t, g.CheckRateLimit("ana"), "write %d", i+1)
	}
	err := g.CheckRateLimit("ana")
	assert.True(t, errors.Is(err, domain.ErrRateLimitExceeded))

	assert.NoError(t, g.CheckRateLimit("bia"), "keys are independent")
}

func TestCheckRateLimit_WindowResets(t *testing.T) {
	g, clock := newTestGuard(1)

	require.NoError(t, g.CheckRateLimit("ana"))
	require.Error(t, g.CheckRateLimit("ana"))

	clock.now = clock.now.Add(59 * time.Second)
	require.Error(t, g.CheckRateLimit("ana"))

	clock.now = clock.now.Add(time.Second)
	assert.NoError(t, g.CheckRateLimit("ana"))
}

func TestCheckRateLimit_Disabled(t *testing.T) {
	g, _ := newTestGuard(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, g.CheckRateLimit("ana"))
	}

	var nilGuard *Guard
	assert.NoError(t, nilGuard.CheckRateLimit("ana"))
	nilGuard.Prune()
}

func TestPrune(t *testing.T) {
	g, clock := newTestGuard(5)
	require.NoError(t, g.CheckRateLimit("ana"))
	clock.now = clock.now.Add(30 * time.Second)
	require.NoError(t, g.CheckRateLimit("bia"))

	clock.now = clock.now.Add(30 * time.Second)
	g.Prune()

	assert.NotContains(t, g.rateCounts, "ana")
	assert.Contains(t, g.rateCounts, "bia")
}
