package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKnownCode(t *testing.T) {
	for _, c := range []string{"", ErrProtoBadRequest, ErrBadRequest, ErrBusy, ErrInternal} {
		assert.True(t, IsKnownCode(c), c)
	}
	assert.False(t, IsKnownCode("E_NOT_DEFINED"))
}

func TestNewError(t *testing.T) {
	e := NewError("r1", ErrBusy, "rebuild in progress")
	assert.Equal(t, TypeError, e.Type)
	assert.Equal(t, Version, e.ProtocolVersion)
	assert.Equal(t, "r1", e.RequestID)
	assert.Equal(t, ErrBusy, e.Code)
}
