package exchange

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/etherpipe/internal/shared/id"
)

// Echo service identifiers shared by the client and internal/echo.
const (
	EchoServiceName = "etherpipe.echo.v1.Echo"
	ExchangeMethod  = "/" + EchoServiceName + "/Exchange"
	RequestIDHeader = "x-request-id"
)

// EchoServer is the server API for the Echo service.
type EchoServer interface {
	Exchange(context.Context, *wrapperspb.Int64Value) (*wrapperspb.Int64Value, error)
}

// RegisterEchoServer registers srv on s.
func RegisterEchoServer(s grpc.ServiceRegistrar, srv EchoServer) {
	s.RegisterService(&EchoServiceDesc, srv)
}

func echoExchangeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EchoServer).Exchange(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ExchangeMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EchoServer).Exchange(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// EchoServiceDesc describes the Echo service without generated stubs; the
// messages are the well-known Int64Value wrapper.
var EchoServiceDesc = grpc.ServiceDesc{
	ServiceName: EchoServiceName,
	HandlerType: (*EchoServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Exchange",
			Handler:    echoExchangeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "etherpipe/echo/v1/echo.proto",
}

type grpcClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

func dialGRPC(addr string, o options) (*grpcClient, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                60 * time.Second,
			Timeout:             20 * time.Second,
			PermitWithoutStream: false,
		}),
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial echo service: %w", err)
	}
	return &grpcClient{conn: conn, timeout: o.timeout}, nil
}

func (c *grpcClient) Exchange(ctx context.Context, v int64) (int64, error) {
	ctx, cancel := roundTripContext(ctx, c.timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, id.NewRequestID().String())

	out := new(wrapperspb.Int64Value)
	if err := c.conn.Invoke(ctx, ExchangeMethod, wrapperspb.Int64(v), out); err != nil {
		return 0, fmt.Errorf("grpc exchange: %w", err)
	}
	return out.GetValue(), nil
}

func (c *grpcClient) Close() error {
	return c.conn.Close()
}
