package mathx

import (
	"crypto/sha256"
	"encoding/binary"
)

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Mix64 is the splitmix64 finalizer (golden-ratio increment included).
func Mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// HashString folds a seed string into 64 bits. Stable across platforms and Go releases.
func HashString(s string) uint64 {
	sum := sha256.Sum256([]byte(s))
	return Mix64(binary.LittleEndian.Uint64(sum[:8]))
}
