// Package peer implements the peer side of the bridge between a state
// container and a controller process.
//
// A Peer is handed to persist.Create as its Bridge. Once activated it dials
// the controller and sends a Connect message immediately and then every
// HeartbeatInterval, redialing whenever the connection is missing. The first
// ConnectReceived message stops the heartbeat for good, unless Reconnect is
// configured: then the peer announces itself again once the acknowledged
// connection is lost.
//
// Messages from the controller are handled on the connection's reader
// goroutine, so they are applied to the container in the order they were
// sent:
//
//	commit, dispatch   run the mutation / action, nothing is sent back
//	get_state          reply with a get_state message carrying the state as JSON
//	clear_state        delete the persisted snapshot
//
// Failing commands are logged, the controller is not notified.
package peer
