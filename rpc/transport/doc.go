// Package transport defines the interfaces for the message transport between a
// peer and a controller process. Both sides exchange opaque messages over a
// single connection; the controller listens, the peer dials.
//
// Key Components:
//
//   - IControllerTransport: listening side, accepts connections and delivers
//     every message together with the connection it arrived on.
//
//   - IPeerTransport: dialing side, holds at most one connection.
//
//   - IConnection: one established connection. OnClose observers are how the
//     bridge learns that the other process terminated.
//
// Implementations live in the sub packages unix, tcp and ws. They share the
// framing and connection handling of package base.
package transport
