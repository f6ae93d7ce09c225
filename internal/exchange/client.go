package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/etherpipe/internal/infrastructure/resilience"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported endpoint scheme")
	ErrBadResponse       = errors.New("malformed exchange response")
	ErrClosed            = errors.New("exchange client is closed")
)

// DefaultTimeout bounds a single round trip when no timeout is configured.
const DefaultTimeout = 2 * time.Second

// Client performs blocking request/response exchanges with a remote service.
type Client interface {
	Exchange(ctx context.Context, v int64) (int64, error)
	Close() error
}

// Message is the JSON body used by the http and ws transports.
type Message struct {
	Value     int64  `json:"value"`
	RequestID string `json:"request_id,omitempty"`
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, v int64) (int64, error)

// Exchange calls f.
func (f Func) Exchange(ctx context.Context, v int64) (int64, error) {
	return f(ctx, v)
}

// Close is a no-op.
func (f Func) Close() error { return nil }

// Option configures Dial.
type Option func(*options)

type options struct {
	timeout time.Duration
	limit   rate.Limit
	burst   int
	breaker resilience.Settings
	logger  *zap.Logger
	unguard bool
}

// WithTimeout bounds each round trip.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRateLimit caps exchanges per second across all callers.
// rps <= 0 removes the cap.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps <= 0 {
			o.limit, o.burst = rate.Inf, 0
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limit, o.burst = rate.Limit(rps), burst
	}
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(s resilience.Settings) Option {
	return func(o *options) { o.breaker = s }
}

// WithLogger sets the logger for transport diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithoutGuard skips the breaker and limiter. Used by tests that need raw
// transport errors.
func WithoutGuard() Option {
	return func(o *options) { o.unguard = true }
}

func defaultOptions() options {
	return options{
		timeout: DefaultTimeout,
		limit:   rate.Inf,
		breaker: resilience.Settings{
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts resilience.Counts) bool {
				// Trip if 5+ consecutive failures or 50% failure rate with 10+ requests
				return counts.ConsecutiveFailures >= 5 ||
					(counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.5)
			},
		},
		logger: zap.NewNop(),
	}
}

// Dial connects to endpoint and returns a guarded client.
func Dial(ctx context.Context, endpoint string, opts ...Option) (Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}

	var transport Client
	switch u.Scheme {
	case "udp":
		transport, err = dialUDP(ctx, u.Host, o)
	case "grpc":
		transport, err = dialGRPC(u.Host, o)
	case "http", "https":
		transport, err = dialHTTP(u, o)
	case "ws", "wss":
		transport, err = dialWS(ctx, u, o)
	case "loop":
		transport = Loopback()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", endpoint, err)
	}

	o.logger.Info("Exchange client connected",
		zap.String("endpoint", endpoint),
		zap.Duration("timeout", o.timeout),
	)

	if o.unguard {
		return transport, nil
	}
	return &guarded{
		transport: transport,
		limiter:   rate.NewLimiter(o.limit, o.burst),
		breaker:   resilience.New("exchange:"+u.Scheme, o.breaker),
	}, nil
}

// guarded applies rate limiting and circuit breaking around a transport.
type guarded struct {
	transport Client
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
}

func (g *guarded) Exchange(ctx context.Context, v int64) (int64, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit error: %w", err)
	}

	resp, err := resilience.Execute(g.breaker, func() (int64, error) {
		return g.transport.Exchange(ctx, v)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return 0, fmt.Errorf("echo service unavailable: %w", err)
	}
	return resp, err
}

func (g *guarded) Close() error {
	return g.transport.Close()
}

// BreakerState reports the breaker state of a client returned by Dial.
func BreakerState(c Client) (resilience.State, bool) {
	g, ok := c.(*guarded)
	if !ok {
		return resilience.StateClosed, false
	}
	return g.breaker.State(), true
}

// roundTripContext applies the per-exchange timeout on top of ctx.
func roundTripContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}
