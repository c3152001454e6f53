// Package cmd implements the command-line interface of dState. It provides a
// hierarchical command structure for running a demo peer, controlling it from
// a second process and inspecting the persisted snapshot offline.
//
// The package is organized into several subpackages:
//
//   - peer: Runs a demo container (counter + todo list) with persistence and the bridge
//   - controller: Waits for a peer and commits, dispatches, reads or clears its state
//   - store: Reads and writes the persisted snapshot without a running peer
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable DSTATE_<FLAG> (e.g.
// DSTATE_LOG_LEVEL=debug), optionally from a .env or .env.local file.
//
// See dstate -help for a list of all commands.
package cmd
