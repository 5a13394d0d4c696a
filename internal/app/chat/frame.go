package chat

import "encoding/json"

// FrameType identifies a WebSocket frame.
type FrameType string

const (
	// TypeSend is sent by the client to post a message.
	TypeSend FrameType = "send"

	// TypeSnapshot carries the rendered message list.
	TypeSnapshot FrameType = "snapshot"

	// TypeAck confirms a stored message to its sender.
	TypeAck FrameType = "ack"

	// TypeError reports a failed operation.
	TypeError FrameType = "error"
)

// Frame is the envelope of every outbound WebSocket message.
type Frame struct {
	Type    FrameType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// InboundFrame is the envelope of client frames.
type InboundFrame struct {
	Type    FrameType       `json:"type"`
	TempID  string          `json:"tempId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SendPayload is the payload of a TypeSend frame.
type SendPayload struct {
	Text string `json:"text"`
}

// AckPayload maps the client's temporary id to the stored message.
type AckPayload struct {
	TempID    string `json:"tempId"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorPayload is the payload of a TypeError frame.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}
