// Package ws implements the transport between a peer and a controller process
// on top of websockets (github.com/coder/websocket). It is used when the peer
// can only open http connections, for example behind a proxy.
//
// Every websocket is wrapped as a net.Conn carrying binary messages, so the
// framing and connection handling of package base apply unchanged.
//
// Endpoints:
//
//	localhost:8080                  listen / dial on "/"
//	ws://localhost:8080/dstate      listen / dial on "/dstate"
package ws
