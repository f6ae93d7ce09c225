// Package queue provides a fixed-capacity circular queue with blocking
// enqueue and dequeue.
//
// A Queue is shared by reference between every producer and consumer of a
// pipeline. Producers park while the queue is full, consumers park while it
// is empty, and each completed operation wakes exactly one waiter on the
// other side. Capacity is fixed at construction; there is no cancellation.
//
// Full and empty are tracked by explicit flags because head == tail alone
// cannot tell the two apart.
//
// Example Usage:
//
//	q, err := queue.New[int64](32)
//	go q.Enqueue(1)
//	v := q.Dequeue()
package queue
