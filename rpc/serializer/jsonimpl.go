package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dState/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding.
// The raw JSON fields of a message (payload, options, state) are embedded
// as nested JSON values, so the output is readable as a whole.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json serializer: %w", err)
	}
	return b, nil
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// fields missing in b must not survive from a previous use of msg
	*msg = common.Message{}
	if err := json.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("json serializer: %w", err)
	}
	return nil
}
