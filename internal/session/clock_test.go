package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogicalClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}

func TestLogicalClock_Concurrent(t *testing.T) {
	c := NewClock()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(400), c.Current())
}

func TestUUIDv7Generator(t *testing.T) {
	var g UUIDv7Generator

	a, b := g.Generate(), g.Generate()
	assert.NotEqual(t, a, b)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("s1", "s2")
	assert.Equal(t, "s1", g.Generate())
	assert.Equal(t, "s2", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestRuntimeError(t *testing.T) {
	cause := errors.New("disk full")
	err := &RuntimeError{
		Code:      ErrCodeStoreFailed,
		Message:   "failed to record step",
		SessionID: "s1",
		Seq:       3,
		Err:       cause,
	}

	assert.Equal(t, "STORE_FAILED: failed to record step (session=s1, seq=3): disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsStoreError(wrapped))
	assert.False(t, IsPresentError(wrapped))
	assert.False(t, IsStoreError(cause))

	present := &RuntimeError{Code: ErrCodePresentFailed, Message: "m"}
	assert.True(t, IsPresentError(present))
	assert.Equal(t, "PRESENT_FAILED: m (session=, seq=0)", present.Error())
}
