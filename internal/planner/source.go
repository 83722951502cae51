package planner

import (
	"math/rand/v2"
	"sync/atomic"
)

// RandSource hands out one Rand per generated plan.
type RandSource func() Rand

// NewRandSource returns a source of per-plan generators. A zero seed draws
// every generator from a randomly seeded stream; any other seed yields the
// reproducible sequence seed, seed+1, seed+2, ...
func NewRandSource(seed uint64) RandSource {
	if seed == 0 {
		return func() Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
	}
	var n atomic.Uint64
	return func() Rand {
		return NewRand(seed + n.Add(1) - 1)
	}
}
