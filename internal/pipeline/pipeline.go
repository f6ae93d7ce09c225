package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/etherpipe/internal/ether"
	"github.com/GriffinCanCode/etherpipe/internal/exchange"
	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/etherpipe/internal/notify"
	"github.com/GriffinCanCode/etherpipe/internal/queue"
	"github.com/GriffinCanCode/etherpipe/internal/shared/id"
	"github.com/GriffinCanCode/etherpipe/internal/trunk"
)

var ErrAlreadyStarted = errors.New("pipeline already started")

// DefaultSampleInterval is how often queue depths are reported to the observer.
const DefaultSampleInterval = 100 * time.Millisecond

// Observer receives every progress hook of a run.
type Observer interface {
	ether.Observer
	trunk.Observer
	notify.Observer
	Queues(out, in queue.Stats)
}

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	observer       Observer
	unchecked      bool
	notifyBuffer   int
	sampleInterval time.Duration
	runID          id.RunID
}

// WithLogger sets the parent logger. New tags it with the run id, so l
// should not carry one already; stages log through named children.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers metrics hooks.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithNotifyBuffer bounds the pending notifications.
func WithNotifyBuffer(n int) Option {
	return func(o *options) { o.notifyBuffer = n }
}

// WithSampleInterval sets how often queue stats are sampled.
func WithSampleInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sampleInterval = d
		}
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(runID id.RunID) Option {
	return func(o *options) { o.runID = runID }
}

// Unchecked skips the quota balance check. A pipeline built this way with
// unbalanced quotas never finishes.
func Unchecked() Option {
	return func(o *options) { o.unchecked = true }
}

// Pipeline is one fully wired Ether and Trunk topology.
type Pipeline struct {
	cfg    Config
	opts   options
	logger *zap.Logger

	qOut    *queue.Queue[int64]
	qIn     *queue.Queue[int64]
	channel *notify.Channel[int64]
	ether   *ether.Ether[int64]
	trunks  []*trunk.Trunk[int64]

	started atomic.Bool
}

// New allocates both queues, the notification channel, the Ether and every
// Trunk. Nothing runs until Run is called.
func New(cfg Config, client exchange.Client, sink notify.Sink, opts ...Option) (*Pipeline, error) {
	o := options{
		logger:         zap.NewNop(),
		notifyBuffer:   notify.DefaultBuffer,
		sampleInterval: DefaultSampleInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = id.NewRunID()
	}

	if err := cfg.validate(!o.unchecked); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: no exchange client", ErrInitialization)
	}

	p := &Pipeline{
		cfg:    cfg,
		opts:   o,
		logger: logging.Wrap(o.logger).ForRun(o.runID.String()).Logger,
	}

	var err error
	if p.qOut, err = queue.New[int64](cfg.QueueCapacity); err != nil {
		return nil, fmt.Errorf("%w: output queue: %w", ErrInitialization, err)
	}
	if p.qIn, err = queue.New[int64](cfg.QueueCapacity); err != nil {
		return nil, fmt.Errorf("%w: input queue: %w", ErrInitialization, err)
	}

	for _, tc := range cfg.Trunks {
		t, err := trunk.New[int64](tc, p.qOut, p.qIn, client)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
		}
		t.WithLogger(p.logger)
		if o.observer != nil {
			t.WithObserver(o.observer)
		}
		p.trunks = append(p.trunks, t)
	}

	notifyOpts := []notify.Option{
		notify.WithLogger(logging.Wrap(p.logger).ForStage(logging.StageNotify, 0).Logger),
		notify.WithBuffer(o.notifyBuffer),
	}
	if o.observer != nil {
		notifyOpts = append(notifyOpts, notify.WithObserver(o.observer))
	}
	p.channel = notify.New[int64](sink, notifyOpts...)

	p.ether, err = ether.New(cfg.Ether, p.qOut, p.qIn, func(n int) int64 { return int64(n) }, ether.Notifier[int64](p.channel))
	if err != nil {
		p.channel.Close()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	p.ether.WithLogger(p.logger)
	if o.observer != nil {
		p.ether.WithObserver(o.observer)
	}

	return p, nil
}

// RunID returns the identifier attached to this run's logs and report.
func (p *Pipeline) RunID() id.RunID {
	return p.opts.runID
}

// Run starts the Ether and all Trunks concurrently and waits for every one of
// them, then flushes the notification channel. ctx is handed to the exchange
// client only; queue operations are never interrupted.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if !p.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	started := time.Now()
	p.logger.Info("Pipeline started",
		zap.Int("queue_capacity", p.cfg.QueueCapacity),
		zap.Int("ether_capacity", p.cfg.Ether.Capacity),
		zap.Int("trunks", len(p.trunks)))

	stopSampling := p.sample()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(p.ether.Run)
	for _, t := range p.trunks {
		t := t
		g.Go(func() error { return t.Run(gctx) })
	}
	err := g.Wait()

	stopSampling()
	p.channel.Close()

	report := p.report(started, time.Now())
	if err != nil {
		p.logger.Error("Pipeline failed", zap.Error(err))
		return report, err
	}

	p.logger.Info("Pipeline finished",
		zap.Duration("elapsed", report.Finished.Sub(report.Started)),
		zap.Uint64("notifications", report.Notifications.Delivered))
	return report, nil
}

// sample reports queue stats to the observer until the returned func is called.
func (p *Pipeline) sample() func() {
	if p.opts.observer == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(p.opts.sampleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				p.opts.observer.Queues(p.qOut.Stats(), p.qIn.Stats())
				return
			case <-ticker.C:
				p.opts.observer.Queues(p.qOut.Stats(), p.qIn.Stats())
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}
