// Package sqlstore implements the store.IStore interface on a SQLite database
// using the pure Go driver modernc.org/sqlite (no cgo required).
//
// All keys live in a single table:
//
//	kv(key TEXT PRIMARY KEY, value TEXT)
//
// Values are stored as JSON text. Migrations run once at open time inside a
// transaction. The store implements store.ICloser.
package sqlstore
