// Package store implements the "dstate store" command group for offline
// access to the persisted snapshot through the same engines the peer uses:
//
//	dstate store get
//	dstate store set '{"count": 3, "todos": []}'
//	dstate store clear [--all]
//	dstate store check
package store
