package rng

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromStringIsReproducible(t *testing.T) {
	a := FromString("abc")
	b := FromString("abc")
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Intn(100), b.Intn(100), "draw %d", i)
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := FromString("abc")
	b := FromString("abd")
	same := 0
	for i := 0; i < 64; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	assert.Less(t, same, 2)
}

func TestIntnBounds(t *testing.T) {
	r := New(42)
	seen := make([]int, 10)
	for i := 0; i < 10000; i++ {
		v := r.Intn(10)
		require.GreaterOrEqual(t, v, 0)
		require.Less(t, v, 10)
		seen[v]++
	}
	for v, n := range seen {
		assert.Greater(t, n, 700, "value %d underrepresented", v)
	}
	assert.Panics(t, func() { r.Intn(0) })
}

func TestTimeSeed(t *testing.T) {
	now := time.Unix(12, 34)
	assert.Equal(t, "12000000034", TimeSeed(now))
}
