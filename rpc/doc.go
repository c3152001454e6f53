// Package rpc connects a state container living in a peer process with a
// controller process. The controller can commit mutations, dispatch actions,
// read the state and clear the persisted snapshot of the peer's container.
//
// The package is organized into several subpackages:
//
//   - common: The Message protocol, configuration structures, logging and metrics
//     shared by both sides.
//
//   - transport: Message oriented connections with pluggable implementations
//     (Unix sockets, TCP, websockets).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - peer: The side next to the container. It announces itself to the controller
//     until acknowledged and executes the received commands.
//
//   - controller: Waits for a peer and returns a proxy (IStoreProxy) to its container.
//
// Handshake:
//
//	peer                          controller
//	 |  connect (every interval)  |
//	 | -------------------------> |  bind connection
//	 |      connect_received      |
//	 | <------------------------- |
//	 |  commit / dispatch / clear |
//	 | <------------------------- |
//	 |         get_state          |
//	 | <------------------------> |
package rpc
