package downlink

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(4, 2, nil)
	var n atomic.Int32
	for i := 0; i < 100; i++ {
		assert.NoError(t, p.Submit(func() { n.Add(1) }))
	}
	p.Close()
	assert.Equal(t, int32(100), n.Load())
	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
	p.Close()
}

func TestPoolRecoversPanics(t *testing.T) {
	if debugBuild {
		t.Skip("debug builds re-panic")
	}
	p := NewPool(1, 0, nil)
	var after atomic.Bool
	assert.NoError(t, p.Submit(func() { panic("boom") }))
	assert.NoError(t, p.Submit(func() { after.Store(true) }))
	p.Close()
	assert.True(t, after.Load(), "worker survives a panicking task")
}
