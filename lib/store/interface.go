package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the persistence adapter used to keep a state snapshot on disk.
// Every operation is synchronous from the caller's viewpoint: when a method
// returns, the engine has either completed the operation or failed.
//
// Values are JSON shaped. Set normalizes the given value (see Normalize), so a
// value read back with Get consists only of map[string]any, []any, float64,
// string, bool and nil.
type IStore interface {
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value any, loaded bool, err error)
	// Set inserts or fully replaces the value for a key.
	Set(key string, value any) (err error)
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) (err error)
	// Clear removes all user keys. Internal bookkeeping keys (see InternalKeyPrefix) survive.
	Clear() (err error)
}

// ICloser is implemented by stores holding resources (files, database handles).
type ICloser interface {
	Close() error
}

// Factory creates a store. It is used by the CLI to abstract the engine selection.
type Factory func(config Config) (IStore, error)

// Config is the engine independent configuration of a persistent store.
type Config struct {
	// Name is the file identifier (without extension)
	Name string
	// Dir overrides the directory the store file is placed in
	Dir string
	// EncryptionKey enables encryption of the store file (optional, not all engines support it)
	EncryptionKey string
	// Migrations are run once when the store is opened
	Migrations Migrations
	// ProjectVersion is the upper bound for migrations (empty = run all)
	ProjectVersion string
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new StoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new StoreError with a formatted message.
func Errorf(code RetCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error (io, corrupt data, wrong key).
	RetCInvalidOperation                // 2: Invalid operation (e.g. store closed).
	RetCInvalidValue                    // 3: Value or version could not be processed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCInvalidValue:
		return "InvalidValue"
	default:
		return "Unknown"
	}
}
