package queue

import (
	"errors"
	"sync"
)

// ErrInvalidCapacity is returned when a queue is built with fewer than one slot.
var ErrInvalidCapacity = errors.New("queue capacity must be at least 1")

// Stats is a point-in-time snapshot of queue counters.
// None of these values take part in synchronization.
type Stats struct {
	Len              int    `json:"len"`
	Cap              int    `json:"cap"`
	HighWater        int    `json:"high_water"`
	BlockedProducers int    `json:"blocked_producers"`
	BlockedConsumers int    `json:"blocked_consumers"`
	Enqueued         uint64 `json:"enqueued"`
	Dequeued         uint64 `json:"dequeued"`
}

// Queue is a bounded circular FIFO safe for any number of producers and consumers.
type Queue[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf   []T
	head  int
	tail  int
	full  bool
	empty bool

	waitingProducers int
	waitingConsumers int
	enqueued         uint64
	dequeued         uint64
	highWater        int
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	q := &Queue[T]{
		buf:   make([]T, capacity),
		empty: true,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q, nil
}

// Enqueue appends v, blocking while the queue is full.
func (q *Queue[T]) Enqueue(v T) {
	q.mu.Lock()
	for q.full {
		q.waitingProducers++
		q.notFull.Wait()
		q.waitingProducers--
	}

	q.buf[q.tail] = v
	q.tail = q.advance(q.tail)
	if q.tail == q.head {
		q.full = true
	}
	q.empty = false

	q.enqueued++
	if n := q.lenLocked(); n > q.highWater {
		q.highWater = n
	}
	q.mu.Unlock()

	q.notEmpty.Signal()
}

// Dequeue removes and returns the oldest item, blocking while the queue is empty.
func (q *Queue[T]) Dequeue() T {
	q.mu.Lock()
	for q.empty {
		q.waitingConsumers++
		q.notEmpty.Wait()
		q.waitingConsumers--
	}

	var zero T
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = q.advance(q.head)
	if q.head == q.tail {
		q.empty = true
	}
	q.full = false

	q.dequeued++
	q.mu.Unlock()

	q.notFull.Signal()
	return v
}

// Len returns the number of resident items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Cap returns the fixed slot count.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return Stats{
		Len:              q.lenLocked(),
		Cap:              len(q.buf),
		HighWater:        q.highWater,
		BlockedProducers: q.waitingProducers,
		BlockedConsumers: q.waitingConsumers,
		Enqueued:         q.enqueued,
		Dequeued:         q.dequeued,
	}
}

func (q *Queue[T]) advance(i int) int {
	i++
	if i == len(q.buf) {
		return 0
	}
	return i
}

// lenLocked resolves the head == tail ambiguity through the flags.
func (q *Queue[T]) lenLocked() int {
	switch {
	case q.full:
		return len(q.buf)
	case q.empty:
		return 0
	}
	return (q.tail - q.head + len(q.buf)) % len(q.buf)
}
