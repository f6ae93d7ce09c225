package ether

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/etherpipe/internal/notify"
	"github.com/GriffinCanCode/etherpipe/internal/queue"
)

var (
	ErrInvalidCapacity = errors.New("ether capacity must be at least 1")
	ErrMissingQueue    = errors.New("ether requires both queues")
	ErrAlreadyStarted  = errors.New("ether already started")
)

// State is the phase of an Ether.
type State int32

const (
	StateIdle State = iota
	StateGenerating
	StateCollecting
	StateDone
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateCollecting:
		return "collecting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Config holds the fixed parameters of one Ether.
type Config struct {
	ID       int
	Delay    time.Duration // pause after each generated item; zero in the reference topology
	Capacity int           // items generated, and results collected
}

// Notifier receives one event per collected result.
type Notifier[T any] interface {
	Raise(kind notify.Kind, payload T) error
}

// Observer is told about every generated and collected item.
type Observer interface {
	Generated(etherID int)
	Collected(etherID int)
}

// Ether generates work items then collects the Trunks' results.
type Ether[T any] struct {
	cfg      Config
	qOut     *queue.Queue[T]
	qIn      *queue.Queue[T]
	next     func(n int) T
	notifier Notifier[T]
	kind     notify.Kind
	logger   *zap.Logger
	observer Observer

	state atomic.Int32
}

// New creates an Ether. next returns the n-th generated value, n starting at 1.
func New[T any](cfg Config, qOut, qIn *queue.Queue[T], next func(n int) T, notifier Notifier[T]) (*Ether[T], error) {
	if cfg.Capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, cfg.Capacity)
	}
	if qOut == nil || qIn == nil {
		return nil, ErrMissingQueue
	}
	if next == nil {
		return nil, errors.New("ether requires a generator")
	}

	return &Ether[T]{
		cfg:      cfg,
		qOut:     qOut,
		qIn:      qIn,
		next:     next,
		notifier: notifier,
		kind:     notify.KindCollected,
		logger:   zap.NewNop(),
	}, nil
}

// WithLogger derives the stage logger from l, named "ether" and tagged
// with this Ether's id.
func (e *Ether[T]) WithLogger(l *zap.Logger) *Ether[T] {
	e.logger = logging.Wrap(l).ForStage(logging.StageEther, e.cfg.ID).Logger
	return e
}

// WithObserver registers progress callbacks.
func (e *Ether[T]) WithObserver(o Observer) *Ether[T] {
	e.observer = o
	return e
}

// WithKind changes the notification kind raised per result.
func (e *Ether[T]) WithKind(k notify.Kind) *Ether[T] {
	e.kind = k
	return e
}

// Config returns the Ether's configuration.
func (e *Ether[T]) Config() Config {
	return e.cfg
}

// State returns the current phase.
func (e *Ether[T]) State() State {
	return State(e.state.Load())
}

// Run executes both phases and returns once Capacity results were collected.
func (e *Ether[T]) Run() error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateGenerating)) {
		return ErrAlreadyStarted
	}

	e.logger.Info("Generation started", zap.Int("capacity", e.cfg.Capacity))
	e.generate()
	e.logger.Info("Finished generation")

	e.state.Store(int32(StateCollecting))
	e.collect()

	e.state.Store(int32(StateDone))
	e.logger.Info("Finished processing")
	return nil
}

func (e *Ether[T]) generate() {
	for n := 1; n <= e.cfg.Capacity; n++ {
		v := e.next(n)
		e.qOut.Enqueue(v)
		e.logger.Debug("Wrote", zap.Any("value", v))

		if e.observer != nil {
			e.observer.Generated(e.cfg.ID)
		}
		if e.cfg.Delay > 0 {
			time.Sleep(e.cfg.Delay)
		}
	}
}

func (e *Ether[T]) collect() {
	for i := 0; i < e.cfg.Capacity; i++ {
		v := e.qIn.Dequeue()
		e.logger.Debug("Read", zap.Any("value", v))

		if e.observer != nil {
			e.observer.Collected(e.cfg.ID)
		}
		if e.notifier == nil {
			continue
		}
		if err := e.notifier.Raise(e.kind, v); err != nil {
			e.logger.Warn("Notification not raised", zap.Any("value", v), zap.Error(err))
		}
	}
}
