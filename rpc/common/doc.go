// Package common contains the types shared by both sides of the bridge:
// the wire protocol (Message, MessageType), the controller / peer / transport
// configuration structs, the logger setup and the metrics.
//
// The Message Protocol:
//
//	CONNECT           peer -> controller   repeated until acknowledged
//	CONNECT_RECEIVED  controller -> peer   acknowledgement, stops the heartbeat
//	COMMIT            controller -> peer   {type, payload, options}, no reply
//	DISPATCH          controller -> peer   {type, payload, options}, no reply
//	GET_STATE         both                 request without body, reply with state
//	CLEAR_STATE       controller -> peer   delete the persisted snapshot, no reply
//
// Payload, Options and State travel as raw JSON inside the message, so every
// serializer (see package serializer) carries them unchanged.
package common
