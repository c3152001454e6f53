// Package store provides the persistence adapter used to keep a state
// snapshot across restarts, together with the engine independent pieces every
// engine shares: a structured error type, internal bookkeeping keys and the
// migration runner.
//
// Key Components:
//
//   - IStore Interface: The minimal key-value contract (Get, Set, Delete,
//     Clear) the persistence layer relies on. Values are JSON shaped, so any
//     engine can encode them the same way.
//
//   - Error System: Engines return *Error values carrying a RetCode, so
//     callers can tell a corrupt or undecryptable file (RetCInternalError)
//     apart from an unserializable value (RetCInvalidValue).
//
//   - Migrations: RunMigrations applies version keyed MigrationFunc values in
//     semantic version order and records the last applied version under
//     MigrationVersionKey. Engines run it at open time.
//
// Implementations:
//
//   - File Store (fstore): a single JSON document, written atomically and
//     optionally encrypted. This is the default engine.
//     Available in the "github.com/ValentinKolb/dState/lib/store/fstore" package.
//
//   - SQLite Store (sqlstore): a kv table in a SQLite database (pure Go driver).
//     Available in the "github.com/ValentinKolb/dState/lib/store/sqlstore" package.
//
//   - Local Store (lstore): in memory, nothing survives the process.
//     Available in the "github.com/ValentinKolb/dState/lib/store/lstore" package.
//
// A shared conformance suite for engines lives in the
// "github.com/ValentinKolb/dState/lib/store/testing" package.
package store
