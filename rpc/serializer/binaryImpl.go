package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dState/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format:
//
//	1 byte   message type
//	1 byte   flags (which optional fields follow)
//	per present field, in flag order: 4 bytes length (big endian) + data
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasType    byte = 1 << 0
	hasPayload byte = 1 << 1
	hasOptions byte = 1 << 2
	hasState   byte = 1 << 3
	hasErr     byte = 1 << 4
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, 2, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	if msg.Type != "" {
		flags |= hasType
		result = appendField(result, []byte(msg.Type))
	}

	// nil means absent, an empty slice is written with length 0
	if msg.Payload != nil {
		flags |= hasPayload
		result = appendField(result, msg.Payload)
	}

	if msg.Options != nil {
		flags |= hasOptions
		result = appendField(result, msg.Options)
	}

	if msg.State != nil {
		flags |= hasState
		result = appendField(result, msg.State)
	}

	if msg.Err != "" {
		flags |= hasErr
		result = appendField(result, []byte(msg.Err))
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]
	r := fieldReader{data: data, pos: 2}

	msg.Type = ""
	if flags&hasType != 0 {
		field, err := r.next("type")
		if err != nil {
			return err
		}
		msg.Type = string(field)
	}

	msg.Payload = nil
	if flags&hasPayload != 0 {
		field, err := r.next("payload")
		if err != nil {
			return err
		}
		msg.Payload = clone(field)
	}

	msg.Options = nil
	if flags&hasOptions != 0 {
		field, err := r.next("options")
		if err != nil {
			return err
		}
		msg.Options = clone(field)
	}

	msg.State = nil
	if flags&hasState != 0 {
		field, err := r.next("state")
		if err != nil {
			return err
		}
		msg.State = clone(field)
	}

	msg.Err = ""
	if flags&hasErr != 0 {
		field, err := r.next("error")
		if err != nil {
			return err
		}
		msg.Err = string(field)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// 4 bytes length prefix per present field
	if msg.Type != "" {
		size += 4 + len(msg.Type)
	}
	if msg.Payload != nil {
		size += 4 + len(msg.Payload)
	}
	if msg.Options != nil {
		size += 4 + len(msg.Options)
	}
	if msg.State != nil {
		size += 4 + len(msg.State)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}

	return size
}

// appendField appends a length prefixed field
func appendField(dst []byte, field []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(field)))
	return append(dst, field...)
}

// fieldReader reads length prefixed fields
type fieldReader struct {
	data []byte
	pos  int
}

func (r *fieldReader) next(name string) ([]byte, error) {
	if r.pos+4 > len(r.data) {
		return nil, fmt.Errorf("data too short for %s length", name)
	}
	length := int(binary.BigEndian.Uint32(r.data[r.pos : r.pos+4]))
	r.pos += 4

	if r.pos+length > len(r.data) {
		return nil, fmt.Errorf("data too short for %s data", name)
	}
	field := r.data[r.pos : r.pos+length]
	r.pos += length
	return field, nil
}

// clone copies a field out of the (possibly pooled) input buffer, keeping empty fields non-nil
func clone(field []byte) []byte {
	out := make([]byte, len(field))
	copy(out, field)
	return out
}
