package echo

import (
	"errors"

	"go.uber.org/zap"
)

// ErrRejected is returned by responders that refuse a value.
var ErrRejected = errors.New("echo rejected value")

// Responder computes the reply for one received value.
type Responder func(v int64) (int64, error)

// Echo replies with the received value.
func Echo(v int64) (int64, error) {
	return v, nil
}

// Server is a running echo listener.
type Server interface {
	Addr() string
	Close() error
}

// Option configures a server.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	responder Responder
	rateLimit *RateLimitConfig
	maxConns  int
	cors      []string
}

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithResponder replaces the default Echo responder.
func WithResponder(r Responder) Option {
	return func(o *options) { o.responder = r }
}

// WithMaxConns caps simultaneous connections accepted by the HTTP server.
func WithMaxConns(n int) Option {
	return func(o *options) { o.maxConns = n }
}

// WithCORS allows browser clients from origins to call the HTTP server.
func WithCORS(origins ...string) Option {
	return func(o *options) { o.cors = origins }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop(), responder: Echo}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
