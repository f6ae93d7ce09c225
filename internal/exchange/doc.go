// Package exchange implements the client side of the remote echo exchange.
//
// A Trunk hands every drained item to Client.Exchange, which performs one
// blocking round trip against the remote echo service and returns the
// correlated value. The endpoint scheme picks the transport:
//
//	udp://host:port      one datagram out, one datagram back
//	grpc://host:port     unary etherpipe.echo.v1.Echo/Exchange
//	http://host:port     POST /exchange with a JSON Message
//	ws://host:port/ws    JSON Message frames over a websocket
//	loop://              in-process echo, no network
//
// Every transport is wrapped in a circuit breaker and an optional rate
// limiter. Clients are safe for concurrent use by all Trunks.
//
// Example Usage:
//
//	client, err := exchange.Dial(ctx, "udp://localhost:8712",
//		exchange.WithTimeout(2*time.Second))
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	resp, err := client.Exchange(ctx, 42)
package exchange
