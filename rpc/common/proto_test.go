package common

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ValentinKolb/dState/lib/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationMessages(t *testing.T) {
	msg, err := NewCommitMessage("add", map[string]any{"title": "a"}, &state.Options{Root: true})
	require.NoError(t, err)
	assert.Equal(t, MsgTCommit, msg.MsgType)
	assert.Equal(t, "add", msg.Type)

	payload, err := msg.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "a"}, payload)

	opts, err := msg.DecodeOptions()
	require.NoError(t, err)
	assert.Equal(t, &state.Options{Root: true}, opts)

	msg, err = NewDispatchMessage("load", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgTDispatch, msg.MsgType)
	assert.Nil(t, msg.Payload)
	assert.Nil(t, msg.Options)

	payload, err = msg.DecodePayload()
	require.NoError(t, err)
	assert.Nil(t, payload)
	opts, err = msg.DecodeOptions()
	require.NoError(t, err)
	assert.Nil(t, opts)
}

func TestInvocationEncodeError(t *testing.T) {
	_, err := NewCommitMessage("add", func() {}, nil)
	assert.Error(t, err)
}

func TestDecodeOptionsNull(t *testing.T) {
	msg := &Message{MsgType: MsgTCommit, Options: json.RawMessage("null")}
	opts, err := msg.DecodeOptions()
	require.NoError(t, err)
	assert.Nil(t, opts)

	msg.Options = json.RawMessage("{")
	_, err = msg.DecodeOptions()
	assert.Error(t, err)
}

func TestGetStateResponse(t *testing.T) {
	msg := NewGetStateResponse(map[string]any{"count": 1})
	assert.Equal(t, MsgTGetState, msg.MsgType)
	assert.Empty(t, msg.Err)

	s, err := msg.DecodeState()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 1.0}, s)

	// a state that cannot be encoded is reported to the controller
	msg = NewGetStateResponse(map[string]any{"fn": func() {}})
	assert.NotEmpty(t, msg.Err)
	_, err = msg.DecodeState()
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	msg := NewErrorMessage(errors.New("boom"))
	assert.Equal(t, MsgTError, msg.MsgType)
	assert.Equal(t, "boom", msg.Err)
}

func TestMessageTypeJSON(t *testing.T) {
	for msgType := MsgTError; msgType <= MsgTClearState; msgType++ {
		b, err := json.Marshal(msgType)
		require.NoError(t, err)
		assert.Equal(t, `"`+msgType.String()+`"`, string(b))

		var decoded MessageType
		require.NoError(t, json.Unmarshal(b, &decoded))
		assert.Equal(t, msgType, decoded)
	}

	var decoded MessageType
	assert.Error(t, json.Unmarshal([]byte(`"unknown"`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`3`), &decoded))
	assert.Equal(t, "unknown", MsgTUnknown.String())
}
