package lsmerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCarriesKind(t *testing.T) {
	err := New(KindFormat, "bad magic %x", 0xdead)
	assert.True(t, Is(err, KindFormat))
	assert.False(t, Is(err, KindIO))
	assert.Contains(t, err.Error(), "bad magic dead")
}

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindIO, cause, "write failed")
	assert.True(t, Is(err, KindIO))
	assert.ErrorIs(t, err, cause)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(KindIO, nil, "no-op"))
}

func TestSentinelsCarryExpectedKind(t *testing.T) {
	assert.True(t, Is(ErrNotSupported, KindState))
	assert.True(t, Is(ErrClosed, KindState))
}
