// Package echo implements the remote echo service that Trunks exchange with.
//
// The same Responder can be served over UDP, gRPC, and HTTP (which also
// upgrades /ws to a websocket). By default every request is answered with
// the value it carried.
//
//	srv, err := echo.ListenUDP("localhost:8712", echo.WithLogger(log))
//	defer srv.Close()
package echo
