// Package unix implements the transport between a peer and a controller
// process using Unix domain sockets. It is the default transport, since both
// processes usually run on the same machine.
//
// This package extends the base transport layer with Unix socket-specific
// connectors. The endpoint is the socket path; a stale socket file is removed
// before listening and the file is removed again when the listener closes.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners and accepts connections
package unix
