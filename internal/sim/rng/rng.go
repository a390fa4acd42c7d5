// Package rng is the deterministic generator behind cave fills.
//
// The stream is a splitmix64 counter, so a seed string always yields the same
// sequence regardless of platform or Go version.
package rng

import (
	"strconv"
	"time"

	"cavecraft.ai/internal/sim/logic/mathx"
)

type Rand struct {
	state uint64
}

func New(seed uint64) *Rand {
	return &Rand{state: seed}
}

// FromString seeds a generator from the hash of a seed string.
func FromString(seed string) *Rand {
	return New(mathx.HashString(seed))
}

// TimeSeed derives a seed string from the clock. Not reproducible unless the
// returned string is recorded.
func TimeSeed(now time.Time) string {
	return strconv.FormatInt(now.UnixNano(), 10)
}

func (r *Rand) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	return mathx.Mix64(r.state)
}

// Intn returns a uniform integer in [0, n). Panics if n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn with non-positive bound")
	}
	bound := uint64(n)
	limit := ^uint64(0) - (^uint64(0) % bound)
	for {
		v := r.Uint64()
		if v < limit {
			return int(v % bound)
		}
	}
}
