package echo

import (
	"context"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/etherpipe/internal/exchange"
)

// GRPCServer serves the Echo service.
type GRPCServer struct {
	lis  net.Listener
	srv  *grpc.Server
	opts options
	done chan struct{}
}

// ListenGRPC binds addr and starts serving.
func ListenGRPC(addr string, opts ...Option) (*GRPCServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &GRPCServer{
		lis:  lis,
		srv:  grpc.NewServer(),
		opts: buildOptions(opts),
		done: make(chan struct{}),
	}
	exchange.RegisterEchoServer(s.srv, s)

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(lis); err != nil {
			s.opts.logger.Warn("gRPC serve stopped", zap.Error(err))
		}
	}()
	return s, nil
}

// Exchange implements exchange.EchoServer.
func (s *GRPCServer) Exchange(ctx context.Context, in *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error) {
	var reqID string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(exchange.RequestIDHeader); len(vals) > 0 {
			reqID = vals[0]
		}
	}

	resp, err := s.opts.responder(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	s.opts.logger.Debug("Echo exchange",
		zap.String("request_id", reqID),
		zap.Int64("value", in.GetValue()),
	)
	return wrapperspb.Int64(resp), nil
}

// Addr returns the bound address.
func (s *GRPCServer) Addr() string {
	return s.lis.Addr().String()
}

// Close stops the server gracefully.
func (s *GRPCServer) Close() error {
	s.srv.GracefulStop()
	<-s.done
	return nil
}
