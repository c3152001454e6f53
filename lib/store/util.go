package store

import (
	"encoding/json"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// --------------------------------------------------------------------------
// Internal Keys
// --------------------------------------------------------------------------

const (
	// InternalKeyPrefix marks keys used for engine bookkeeping. They are not removed by Clear().
	InternalKeyPrefix = "__internal__"
	// MigrationVersionKey holds the version of the last applied migration
	MigrationVersionKey = InternalKeyPrefix + ".migrations.version"
)

// IsInternalKey reports whether key is an engine bookkeeping key.
func IsInternalKey(key string) bool {
	return strings.HasPrefix(key, InternalKeyPrefix)
}

// --------------------------------------------------------------------------
// Value Helpers
// --------------------------------------------------------------------------

// Normalize converts a value to its JSON shape by encoding and decoding it.
// Numbers become float64, structs become map[string]any and so on.
// The result never aliases the input.
func Normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, Errorf(RetCInvalidValue, "value is not JSON serializable: %v", err)
	}
	return Decode(raw)
}

// Decode parses a JSON document into its JSON shaped value.
func Decode(raw []byte) (any, error) {
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, Errorf(RetCInternalError, "failed to decode value: %v", err)
	}
	return out, nil
}
