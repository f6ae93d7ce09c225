package exchange_test

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/etherpipe/internal/echo"
	"github.com/GriffinCanCode/etherpipe/internal/exchange"
)

// startEcho starts the echo listener for scheme and returns its endpoint.
func startEcho(b *testing.B, scheme string) string {
	b.Helper()

	var (
		srv echo.Server
		err error
	)
	switch scheme {
	case "udp":
		srv, err = echo.ListenUDP("127.0.0.1:0")
	case "grpc":
		srv, err = echo.ListenGRPC("127.0.0.1:0")
	case "http", "ws":
		srv, err = echo.ListenHTTP("127.0.0.1:0")
	case "loop":
		return "loop://"
	}
	if err != nil {
		b.Fatalf("listen %s: %v", scheme, err)
	}
	b.Cleanup(func() { _ = srv.Close() })

	switch scheme {
	case "http":
		return "http://" + srv.Addr() + exchange.DefaultHTTPPath
	case "ws":
		return "ws://" + srv.Addr() + exchange.DefaultWSPath
	default:
		return scheme + "://" + srv.Addr()
	}
}

func BenchmarkExchange(b *testing.B) {
	for _, scheme := range []string{"loop", "udp", "grpc", "http", "ws"} {
		b.Run(scheme, func(b *testing.B) {
			endpoint := startEcho(b, scheme)
			client, err := exchange.Dial(context.Background(), endpoint)
			if err != nil {
				b.Fatalf("dial %s: %v", endpoint, err)
			}
			defer client.Close()

			ctx := context.Background()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := client.Exchange(ctx, int64(i)); err != nil {
					b.Fatalf("exchange %d: %v", i, err)
				}
			}
		})
	}
}

func BenchmarkExchangeParallel(b *testing.B) {
	for _, scheme := range []string{"udp", "grpc", "http"} {
		b.Run(scheme, func(b *testing.B) {
			endpoint := startEcho(b, scheme)
			client, err := exchange.Dial(context.Background(), endpoint)
			if err != nil {
				b.Fatalf("dial %s: %v", endpoint, err)
			}
			defer client.Close()

			b.RunParallel(func(pb *testing.PB) {
				ctx := context.Background()
				var v int64
				for pb.Next() {
					v++
					if _, err := client.Exchange(ctx, v); err != nil {
						b.Errorf("exchange: %v", err)
						return
					}
				}
			})
		})
	}
}
