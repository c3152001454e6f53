// Package tcp implements the TCP socket based transport between a peer and a
// controller process. It provides concrete implementations of the base
// package's connector interfaces and applies the socket settings of
// common.TransportConfig (no delay, buffer sizes, keep-alive, linger) to both
// accepted and dialed connections.
//
// Use the tcp transport when peer and controller run on different hosts or
// when Unix sockets are not available. The listen endpoint may use port 0,
// the actual address is returned by Addr().
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
package tcp
