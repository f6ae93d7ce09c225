package notify

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrChannelClosed = errors.New("notification channel is closed")
	ErrUnknownKind   = errors.New("unknown notification kind")
)

// DefaultBuffer is the pending-event bound used when none is configured.
const DefaultBuffer = 64

// Event is one raised notification. It is always passed by value.
type Event[T any] struct {
	Kind    Kind
	Payload T
	Seq     uint64
	Raised  time.Time
}

// Observer receives delivery outcomes, typically for metrics.
type Observer interface {
	// Raised runs while the channel is locked and must not call back into it.
	Raised(kind Kind)
	Delivered(kind Kind, latency time.Duration)
	Dropped(kind Kind, reason string)
}

// Stats holds delivery counters.
type Stats struct {
	Raised    uint64 `json:"raised"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Rejected  uint64 `json:"rejected"`
}

// Option configures a Channel.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	buffer   int
	kinds    []Kind
	observer Observer
}

// WithLogger sets the logger used for delivery warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBuffer bounds the number of pending events.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithKinds replaces the set of kinds the handler accepts.
func WithKinds(kinds ...Kind) Option {
	return func(o *options) { o.kinds = kinds }
}

// WithObserver registers delivery callbacks.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Channel is a queued, priority-ordered notification path with one observer.
type Channel[T any] struct {
	sink     Sink
	logger   *zap.Logger
	buffer   int
	kinds    map[Kind]struct{}
	observer Observer

	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	pending  eventHeap[T]
	seq      uint64
	closed   bool
	done     chan struct{}

	raised    atomic.Uint64
	delivered atomic.Uint64
	dropped   atomic.Uint64
	rejected  atomic.Uint64
}

// New creates a channel delivering into sink and starts its observer.
// A nil sink is allowed; every record is then dropped with a warning.
func New[T any](sink Sink, opts ...Option) *Channel[T] {
	o := options{
		logger: zap.NewNop(),
		buffer: DefaultBuffer,
		kinds:  []Kind{KindCollected},
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Channel[T]{
		sink:     sink,
		logger:   o.logger,
		buffer:   o.buffer,
		kinds:    make(map[Kind]struct{}, len(o.kinds)),
		observer: o.observer,
		done:     make(chan struct{}),
	}
	for _, k := range o.kinds {
		c.kinds[k] = struct{}{}
	}
	c.notFull = sync.NewCond(&c.mu)
	c.notEmpty = sync.NewCond(&c.mu)

	go c.observe()
	return c
}

// Raise queues one event. It blocks only while the pending set is full.
func (c *Channel[T]) Raise(kind Kind, payload T) error {
	c.mu.Lock()
	for !c.closed && len(c.pending) >= c.buffer {
		c.notFull.Wait()
	}
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}

	c.seq++
	heap.Push(&c.pending, Event[T]{
		Kind:    kind,
		Payload: payload,
		Seq:     c.seq,
		Raised:  time.Now(),
	})
	// Counted before the observer goroutine can pop the event, so raised
	// never trails delivered.
	c.raised.Add(1)
	if c.observer != nil {
		c.observer.Raised(kind)
	}
	c.mu.Unlock()

	c.notEmpty.Signal()
	return nil
}

// Pending returns the number of events not yet handed to the observer.
func (c *Channel[T]) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close stops accepting events, delivers everything still pending and waits
// for the observer to exit. It is safe to call more than once.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.notEmpty.Broadcast()
	c.notFull.Broadcast()
	<-c.done
}

// Stats returns delivery counters.
func (c *Channel[T]) Stats() Stats {
	// Outcomes are read before raised so a snapshot never shows more
	// deliveries than raises.
	st := Stats{
		Delivered: c.delivered.Load(),
		Dropped:   c.dropped.Load(),
		Rejected:  c.rejected.Load(),
	}
	st.Raised = c.raised.Load()
	return st
}

func (c *Channel[T]) observe() {
	defer close(c.done)

	for {
		c.mu.Lock()
		for len(c.pending) == 0 && !c.closed {
			c.notEmpty.Wait()
		}
		if len(c.pending) == 0 {
			c.mu.Unlock()
			return
		}
		ev := heap.Pop(&c.pending).(Event[T])
		c.mu.Unlock()

		c.notFull.Signal()
		c.handle(ev)
	}
}

// handle validates, formats and appends one event.
func (c *Channel[T]) handle(ev Event[T]) {
	if _, ok := c.kinds[ev.Kind]; !ok {
		c.rejected.Add(1)
		c.logger.Warn("Rejected notification",
			zap.Stringer("kind", ev.Kind),
			zap.Uint64("seq", ev.Seq),
			zap.Error(ErrUnknownKind),
		)
		c.drop(ev.Kind, "unknown_kind")
		return
	}

	c.logger.Debug("Notification delivered to handler",
		zap.Stringer("kind", ev.Kind),
		zap.Any("value", ev.Payload),
		zap.Uint64("seq", ev.Seq),
	)

	rec, err := FormatRecord(ev.Kind, ev.Payload)
	if err != nil {
		c.logger.Warn("Unformattable notification", zap.Error(err))
		c.drop(ev.Kind, "format")
		return
	}

	if c.sink == nil {
		c.logger.Warn("Notification sink not open, record dropped",
			zap.Stringer("kind", ev.Kind),
			zap.Any("value", ev.Payload),
		)
		c.drop(ev.Kind, "sink_unavailable")
		return
	}

	if err := c.sink.Append(rec); err != nil {
		c.logger.Warn("Notification sink write failed, record dropped",
			zap.Stringer("kind", ev.Kind),
			zap.Any("value", ev.Payload),
			zap.Error(err),
		)
		c.drop(ev.Kind, "sink_error")
		return
	}

	c.delivered.Add(1)
	if c.observer != nil {
		c.observer.Delivered(ev.Kind, time.Since(ev.Raised))
	}
}

func (c *Channel[T]) drop(kind Kind, reason string) {
	c.dropped.Add(1)
	if c.observer != nil {
		c.observer.Dropped(kind, reason)
	}
}

// eventHeap orders pending events by kind, then by raise sequence.
type eventHeap[T any] []Event[T]

func (h eventHeap[T]) Len() int { return len(h) }

func (h eventHeap[T]) Less(i, j int) bool {
	if h[i].Kind != h[j].Kind {
		return h[i].Kind < h[j].Kind
	}
	return h[i].Seq < h[j].Seq
}

func (h eventHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap[T]) Push(x any) { *h = append(*h, x.(Event[T])) }

func (h *eventHeap[T]) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}
