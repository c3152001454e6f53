// Package lstore provides an in-memory implementation of the store.IStore
// interface. It is used for dev mode, tests and as the "memory" engine of the
// CLI. Values are stored JSON encoded in a lock-free xsync map.
package lstore
