package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draws(r Rand, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = r.IntN(1 << 30)
	}
	return out
}

func TestNewRandSource_Seeded(t *testing.T) {
	a := NewRandSource(10)
	b := NewRandSource(10)

	first := draws(a(), 8)
	assert.Equal(t, first, draws(b(), 8), "same seed, same first generator")
	assert.Equal(t, draws(NewRand(10), 8), first)
	assert.Equal(t, draws(NewRand(11), 8), draws(a(), 8), "second generator uses seed+1")
}

func TestNewRandSource_SeededPlans(t *testing.T) {
	g := newTestGenerator()
	a, err := g.Generate(validProfile(), NewRandSource(5)())
	require.NoError(t, err)
	b, err := g.Generate(validProfile(), NewRandSource(5)())
	require.NoError(t, err)
	assert.Equal(t, a.Meals, b.Meals)
}

func TestNewRandSource_Random(t *testing.T) {
	src := NewRandSource(0)
	assert.NotEqual(t, draws(src(), 8), draws(src(), 8))
}
