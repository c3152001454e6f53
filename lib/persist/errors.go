package persist

import "errors"

var (
	// ErrStorageInvalid is returned by CheckStorage when the store cannot be written, read or deleted
	ErrStorageInvalid = errors.New("storage is not valid")
	// ErrMissingBridge is returned by the plugin when IPC is enabled without a bridge
	ErrMissingBridge = errors.New("ipc enabled but no bridge given")
)
