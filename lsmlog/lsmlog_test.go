package lsmlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscardIsANoOp(t *testing.T) {
	assert.False(t, Discard.V("anything"))
	assert.NotPanics(t, func() {
		Discard.Printf("topic", "msg %d", 1)
		Discard.Error("failure: %v", "reason")
	})
}

func TestNilLoggerIsANoOp(t *testing.T) {
	var lg *Logger
	assert.False(t, lg.V("anything"))
	assert.NotPanics(t, func() {
		lg.Printf("topic", "msg")
		lg.Error("failure")
	})
}

func TestNewWrapsNilLogger(t *testing.T) {
	lg := New(nil)
	assert.False(t, lg.V("topic"))
}
