// Package base provides the foundation for all stream based transports,
// implementing connection handling and framing independent of the specific
// network protocol (TCP, Unix sockets, websockets). It serves as a base layer
// that is extended with protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic listening (controller) and dialing (peer) transports
//   - Frame-based message protocol with sequence numbers
//   - Ordered, sequential delivery of the messages of one connection
//   - Termination detection via connection observers
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: Holds at most one connection to the controller and
//     replaces it on every Connect.
//
//   - serverTransport: Accepts connections in the background and tracks them
//     by their uuid until they terminate.
//
//   - connection: One net.Conn with a dedicated reader goroutine. The reader
//     calls the handler for every frame and closes the connection on the first
//     read error, which notifies the OnClose observers.
//
// Frame Layout:
//
//	8 bytes  sequence number (uint64, big endian)
//	4 bytes  payload length (uint32, big endian)
//	N bytes  payload
//
// The transport uses net.Buffers to write header and payload with a single
// call where the connection supports vectored writes.
//
// Thread Safety:
//
//	All public methods are thread-safe. Writes to a connection are serialized
//	by a mutex, reads happen on the connection's reader goroutine only.
package base
