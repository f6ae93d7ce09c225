package trunk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/etherpipe/internal/queue"
)

var (
	ErrInvalidQuota   = errors.New("trunk quota must be at least 1")
	ErrMissingQueue   = errors.New("trunk requires both queues")
	ErrMissingClient  = errors.New("trunk requires an exchange client")
	ErrAlreadyStarted = errors.New("trunk already started")
)

// Integer is the set of payload types a Trunk can carry.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// Config holds the fixed parameters of one Trunk.
type Config struct {
	ID         int
	Delay      time.Duration
	Quota      int
	Correlated bool // republish exchange replies instead of 1..Quota
}

// Exchanger performs one blocking round trip.
type Exchanger[T any] interface {
	Exchange(ctx context.Context, v T) (T, error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc[T any] func(ctx context.Context, v T) (T, error)

// Exchange calls f.
func (f ExchangerFunc[T]) Exchange(ctx context.Context, v T) (T, error) {
	return f(ctx, v)
}

// Observer is told about trunk progress.
type Observer interface {
	Drained(trunkID int)
	Exchanged(trunkID int, latency time.Duration, err error)
	Republished(trunkID int)
}

// Stats is a snapshot of a Trunk's progress.
type Stats struct {
	ID               int             `json:"id"`
	Quota            int             `json:"quota"`
	Delay            time.Duration   `json:"delay"`
	Drained          int             `json:"drained"`
	Republished      int             `json:"republished"`
	ExchangeFailures int             `json:"exchange_failures"`
	Latencies        []time.Duration `json:"-"`
	Started          time.Time       `json:"started"`
	Finished         time.Time       `json:"finished"`
}

// Option configures a Trunk.
type Option[T Integer] func(*Trunk[T])

// WithSuccessor replaces the value sent upstream for each drained item.
// The default sends v+1.
func WithSuccessor[T Integer](f func(v T) T) Option[T] {
	return func(t *Trunk[T]) {
		if f != nil {
			t.successor = f
		}
	}
}

// WithResult replaces the k-th republished value, k starting at 1.
// The default republishes k.
func WithResult[T Integer](f func(k int) T) Option[T] {
	return func(t *Trunk[T]) {
		if f != nil {
			t.result = f
		}
	}
}

// Trunk drains, exchanges and republishes a fixed quota of items.
type Trunk[T Integer] struct {
	cfg       Config
	qOut      *queue.Queue[T]
	qIn       *queue.Queue[T]
	client    Exchanger[T]
	successor func(v T) T
	result    func(k int) T
	logger    *zap.Logger
	observer  Observer
	sleep     func(time.Duration)

	started atomic.Bool

	mu    sync.Mutex
	stats Stats
}

// New creates a Trunk reading from qOut and writing to qIn.
func New[T Integer](cfg Config, qOut, qIn *queue.Queue[T], client Exchanger[T], opts ...Option[T]) (*Trunk[T], error) {
	if cfg.Quota < 1 {
		return nil, fmt.Errorf("%w: trunk %d has quota %d", ErrInvalidQuota, cfg.ID, cfg.Quota)
	}
	if qOut == nil || qIn == nil {
		return nil, ErrMissingQueue
	}
	if client == nil {
		return nil, ErrMissingClient
	}

	t := &Trunk[T]{
		cfg:       cfg,
		qOut:      qOut,
		qIn:       qIn,
		client:    client,
		successor: func(v T) T { return v + 1 },
		result:    func(k int) T { return T(k) },
		logger:    zap.NewNop(),
		sleep:     time.Sleep,
		stats: Stats{
			ID:    cfg.ID,
			Quota: cfg.Quota,
			Delay: cfg.Delay,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// WithLogger derives the stage logger from l, named "trunk" and tagged
// with this Trunk's id.
func (t *Trunk[T]) WithLogger(l *zap.Logger) *Trunk[T] {
	t.logger = logging.Wrap(l).ForStage(logging.StageTrunk, t.cfg.ID).Logger
	return t
}

// WithObserver registers progress callbacks.
func (t *Trunk[T]) WithObserver(o Observer) *Trunk[T] {
	t.observer = o
	return t
}

// Config returns the Trunk's configuration.
func (t *Trunk[T]) Config() Config {
	return t.cfg
}

// Run drains Quota items, exchanging each, then republishes Quota results.
// ctx only bounds the exchanges; queue operations block until they succeed.
func (t *Trunk[T]) Run(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	t.mu.Lock()
	t.stats.Started = time.Now()
	t.mu.Unlock()

	replies := t.drain(ctx)
	t.logger.Info("Finished exchanging", zap.Int("quota", t.cfg.Quota))

	t.republish(replies)

	t.mu.Lock()
	t.stats.Finished = time.Now()
	failures := t.stats.ExchangeFailures
	t.mu.Unlock()

	t.logger.Info("Finished processing", zap.Int("exchange_failures", failures))
	return nil
}

// drain returns one reply per item. A nil entry marks a failed exchange.
func (t *Trunk[T]) drain(ctx context.Context) []*T {
	var replies []*T
	if t.cfg.Correlated {
		replies = make([]*T, 0, t.cfg.Quota)
	}

	for i := 0; i < t.cfg.Quota; i++ {
		v := t.qOut.Dequeue()
		t.logger.Debug("Received", zap.Any("value", v))
		t.mu.Lock()
		t.stats.Drained++
		t.mu.Unlock()
		if t.observer != nil {
			t.observer.Drained(t.cfg.ID)
		}

		out := t.successor(v)
		start := time.Now()
		reply, err := t.client.Exchange(ctx, out)
		latency := time.Since(start)

		t.mu.Lock()
		t.stats.Latencies = append(t.stats.Latencies, latency)
		if err != nil {
			t.stats.ExchangeFailures++
		}
		t.mu.Unlock()
		if t.observer != nil {
			t.observer.Exchanged(t.cfg.ID, latency, err)
		}

		if err != nil {
			t.logger.Warn("Exchange failed", zap.Any("value", out), zap.Error(err))
			if replies != nil {
				replies = append(replies, nil)
			}
		} else {
			t.logger.Debug("Exchanged", zap.Any("sent", out), zap.Any("reply", reply), zap.Duration("latency", latency))
			if replies != nil {
				replies = append(replies, &reply)
			}
		}

		t.pause()
	}
	return replies
}

func (t *Trunk[T]) republish(replies []*T) {
	for k := 1; k <= t.cfg.Quota; k++ {
		v := t.result(k)
		if k <= len(replies) && replies[k-1] != nil {
			v = *replies[k-1]
		}

		t.qIn.Enqueue(v)
		t.logger.Debug("Republished", zap.Any("value", v))
		t.mu.Lock()
		t.stats.Republished++
		t.mu.Unlock()
		if t.observer != nil {
			t.observer.Republished(t.cfg.ID)
		}

		t.pause()
	}
}

func (t *Trunk[T]) pause() {
	if t.cfg.Delay > 0 {
		t.sleep(t.cfg.Delay)
	}
}

// Stats returns a snapshot of the Trunk's progress.
func (t *Trunk[T]) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stats
	s.Latencies = append([]time.Duration(nil), t.stats.Latencies...)
	return s
}
