package session

import (
	"sync"

	"github.com/roach88/qrscan/internal/scan"
)

// itemType distinguishes queued work.
type itemType int

const (
	// itemDecode is a frame's decode outcome.
	itemDecode itemType = iota + 1
	// itemAnswer is the user's answer to a URL prompt.
	itemAnswer
)

// item is one unit of work for the Run loop.
type item struct {
	Type     itemType
	Event    scan.DecodeEvent
	Payload  string // itemAnswer
	Accepted bool   // itemAnswer
}

// itemQueue is a thread-safe unbounded FIFO.
//
// Unbounded so that a producer delivering frames never blocks on a slow
// presenter. The signal channel lets Run wait with context awareness.
type itemQueue struct {
	mu     sync.Mutex
	items  []item
	closed bool
	signal chan struct{} // buffered, size 1
}

func newItemQueue() *itemQueue {
	return &itemQueue{
		items:  make([]item, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Returns false if the queue is closed.
func (q *itemQueue) Enqueue(it item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, it)

	// Non-blocking; the buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
// Returns (item{}, false) if the queue is empty.
func (q *itemQueue) TryDequeue() (item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item{}, false
	}

	it := q.items[0]
	// Clear the slot so the backing array does not pin payload strings
	q.items[0] = item{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return it, true
}

// Wait returns a channel that signals when items may be available.
// The channel is closed when the queue is closed.
func (q *itemQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *itemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *itemQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more items will be enqueued.
func (q *itemQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
