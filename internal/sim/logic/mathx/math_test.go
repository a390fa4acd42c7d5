package mathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignAndAbs(t *testing.T) {
	assert.Equal(t, 1, Sign(7))
	assert.Equal(t, -1, Sign(-3))
	assert.Equal(t, 0, Sign(0))
	assert.Equal(t, 4, AbsInt(-4))
	assert.Equal(t, 4, AbsInt(4))
}

func TestHashStringStable(t *testing.T) {
	assert.Equal(t, HashString("abc"), HashString("abc"))
	assert.NotEqual(t, HashString("abc"), HashString("abd"))
	assert.NotEqual(t, HashString(""), HashString(" "))
}
