// Package controller implements the "dstate controller" command group. Every
// command listens on the configured endpoint, waits for a peer to connect
// and executes a single operation on the peer's container:
//
//	dstate controller commit increment 2
//	dstate controller dispatch add-todos '["milk", "eggs"]'
//	dstate controller get
//	dstate controller clear
package controller
