package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dState/lib/state"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message exchanged between peer and controller.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Commit / Dispatch fields
	Type    string          `json:"type,omitempty"`    // Used for: Commit, Dispatch (mutation or action type)
	Payload json.RawMessage `json:"payload,omitempty"` // Used for: Commit, Dispatch (JSON encoded payload)
	Options json.RawMessage `json:"options,omitempty"` // Used for: Commit, Dispatch (JSON encoded options, absent = no options)

	// Response only fields
	State json.RawMessage `json:"state,omitempty"` // Used for: GetState responses (JSON encoded state)
	Err   string          `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewConnectMessage creates the heartbeat a peer sends until it is acknowledged
func NewConnectMessage() *Message {
	return &Message{MsgType: MsgTConnect}
}

// NewConnectReceivedMessage creates the acknowledgement of a Connect message
func NewConnectReceivedMessage() *Message {
	return &Message{MsgType: MsgTConnectReceived}
}

// NewCommitMessage creates a Commit message. payload and opts are JSON encoded.
func NewCommitMessage(mutationType string, payload any, opts *state.Options) (*Message, error) {
	return newInvocation(MsgTCommit, mutationType, payload, opts)
}

// NewDispatchMessage creates a Dispatch message. payload and opts are JSON encoded.
func NewDispatchMessage(actionType string, payload any, opts *state.Options) (*Message, error) {
	return newInvocation(MsgTDispatch, actionType, payload, opts)
}

// NewGetStateRequest creates a GetState request
func NewGetStateRequest() *Message {
	return &Message{MsgType: MsgTGetState}
}

// NewGetStateResponse creates a GetState response carrying the JSON encoded state.
// If the state cannot be encoded the response carries the error instead.
func NewGetStateResponse(s any) *Message {
	msg := &Message{MsgType: MsgTGetState}
	raw, err := json.Marshal(s)
	if err != nil {
		msg.Err = fmt.Sprintf("failed to encode state: %v", err)
		return msg
	}
	msg.State = raw
	return msg
}

// NewClearStateMessage creates a ClearState message
func NewClearStateMessage() *Message {
	return &Message{MsgType: MsgTClearState}
}

// NewErrorMessage creates an Error message
func NewErrorMessage(err error) *Message {
	return &Message{MsgType: MsgTError, Err: err.Error()}
}

func newInvocation(msgType MessageType, name string, payload any, opts *state.Options) (*Message, error) {
	msg := &Message{MsgType: msgType, Type: name}

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		msg.Payload = raw
	}

	if opts != nil {
		raw, err := json.Marshal(opts)
		if err != nil {
			return nil, fmt.Errorf("failed to encode options: %w", err)
		}
		msg.Options = raw
	}
	return msg, nil
}

// --------------------------------------------------------------------------
// Message Decoding
// --------------------------------------------------------------------------

// DecodePayload returns the JSON shaped payload (nil if absent)
func (m *Message) DecodePayload() (any, error) {
	return decodeRaw(m.Payload)
}

// DecodeOptions returns the commit/dispatch options (nil if absent)
func (m *Message) DecodeOptions() (*state.Options, error) {
	if len(m.Options) == 0 || string(m.Options) == "null" {
		return nil, nil
	}
	opts := &state.Options{}
	if err := json.Unmarshal(m.Options, opts); err != nil {
		return nil, fmt.Errorf("failed to decode options: %w", err)
	}
	return opts, nil
}

// DecodeState returns the JSON shaped state of a GetState response
func (m *Message) DecodeState() (any, error) {
	if m.Err != "" {
		return nil, fmt.Errorf("peer error: %s", m.Err)
	}
	return decodeRaw(m.State)
}

func decodeRaw(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Message Types
// --------------------------------------------------------------------------

// MessageType represents the type of message
type MessageType uint8

// String returns the string representation of the MessageType
func (t MessageType) String() string {
	switch t {
	case MsgTConnect:
		return "connect"
	case MsgTConnectReceived:
		return "connect_received"
	case MsgTCommit:
		return "commit"
	case MsgTDispatch:
		return "dispatch"
	case MsgTGetState:
		return "get_state"
	case MsgTClearState:
		return "clear_state"
	case MsgTError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "connect":
		*t = MsgTConnect
	case "connect_received":
		*t = MsgTConnectReceived
	case "commit":
		*t = MsgTCommit
	case "dispatch":
		*t = MsgTDispatch
	case "get_state":
		*t = MsgTGetState
	case "clear_state":
		*t = MsgTClearState
	case "error":
		*t = MsgTError
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota
	MsgTError               // Indicates an error occurred

	// Handshake

	MsgTConnect         // peer -> controller, repeated until acknowledged
	MsgTConnectReceived // controller -> peer, stops the heartbeat

	// Container operations

	MsgTCommit     // controller -> peer, commit a mutation
	MsgTDispatch   // controller -> peer, dispatch an action
	MsgTGetState   // both directions, request / response
	MsgTClearState // controller -> peer, delete the persisted snapshot
)
