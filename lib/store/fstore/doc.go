// Package fstore implements the store.IStore interface on a single JSON file.
// It is the default persistence engine.
//
// Key properties:
//
//   - Atomic writes: the file is replaced via write-to-temp + fsync + rename,
//     so a crash never leaves a half written file behind.
//
//   - Optional encryption: with an encryption key the document is sealed with
//     XChaCha20-Poly1305, the key derived from the passphrase with Argon2id.
//     A plain file is upgraded to an encrypted one on the next write.
//
//   - Migrations: store.Migrations run when the store is opened, inside an
//     in-memory transaction. The file is only written if all of them succeed.
//
// Thread Safety:
//
//	All methods are serialized by a mutex. Access from other processes is
//	not coordinated beyond the atomic file replacement.
package fstore
