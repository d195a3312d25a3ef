package frame

import "sync"

// DefaultQueueCapacity is the handoff queue's default capacity K (§4.1).
const DefaultQueueCapacity = 2

// Queue is a bounded, single-writer/single-reader, drop-oldest FIFO between
// the capture goroutine and the detection goroutine. Offer never blocks:
// once full, the oldest buffered frame is discarded and counted as a drop.
type Queue struct {
	mu       sync.Mutex
	cap      int
	items    []*Frame
	puts     uint64
	polls    uint64
	drops    uint64
}

// NewQueue returns an empty Queue with the given capacity. capacity <= 0
// falls back to DefaultQueueCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		cap:   capacity,
		items: make([]*Frame, 0, capacity),
	}
}

// Offer appends f, dropping the oldest buffered frame first if the queue is
// already at capacity. Never blocks.
func (q *Queue) Offer(f *Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.puts++
	if len(q.items) >= q.cap {
		// Drop oldest to make room — detection tolerates slack, not backlog.
		q.items = q.items[1:]
		q.drops++
	}
	q.items = append(q.items, f)
}

// Poll removes and returns the oldest buffered frame. Returns nil if empty.
func (q *Queue) Poll() *Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	f := q.items[0]
	q.items = q.items[1:]
	q.polls++
	return f
}

// DrainToLatest removes every buffered frame and returns only the most
// recently offered one, discarding the rest (each discarded frame counts
// toward polls, since it is consumed rather than dropped-for-space).
func (q *Queue) DrainToLatest() *Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 {
		return nil
	}
	latest := q.items[n-1]
	q.polls += uint64(n)
	q.items = q.items[:0]
	return latest
}

// Len returns the number of frames currently buffered.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stats returns the running puts/polls/drops counters, satisfying the
// invariant drops == puts - polls - currentSize for any sequence of
// Offer/Poll/DrainToLatest calls.
func (q *Queue) Stats() (puts, polls, drops uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.puts, q.polls, q.drops
}
