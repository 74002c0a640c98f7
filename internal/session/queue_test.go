package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qrscan/internal/scan"
)

func TestItemQueue_FIFO(t *testing.T) {
	q := newItemQueue()

	for _, p := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(item{Type: itemDecode, Event: scan.Found(p, scan.Rect{})}))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.Event.Text())
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestItemQueue_EnqueueAfterClose(t *testing.T) {
	q := newItemQueue()
	q.Close()
	q.Close() // second close is a no-op

	assert.False(t, q.Enqueue(item{Type: itemDecode}))
	assert.True(t, q.Closed())
	assert.Equal(t, 0, q.Len())
}

func TestItemQueue_WaitSignals(t *testing.T) {
	q := newItemQueue()

	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Enqueue(item{Type: itemAnswer, Payload: "x"})
	}()

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("Wait did not signal after Enqueue")
	}
	assert.Equal(t, 1, q.Len())
}

func TestItemQueue_WaitClosedChannel(t *testing.T) {
	q := newItemQueue()
	q.Close()

	select {
	case _, ok := <-q.Wait():
		assert.False(t, ok, "signal channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("Wait did not fire after Close")
	}
}

func TestItemQueue_ConcurrentEnqueue(t *testing.T) {
	q := newItemQueue()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Enqueue(item{Type: itemDecode})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
}
