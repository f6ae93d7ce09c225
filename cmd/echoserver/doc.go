// Command echoserver answers exchange requests by echoing the received value
// over UDP, gRPC, HTTP and websocket.
package main
