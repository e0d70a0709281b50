package ws

import "encoding/json"

// MessageType identifies the kind of WebSocket message.
type MessageType string

const (
	// client to server
	MsgSubscribe   MessageType = "subscribe"
	MsgUnsubscribe MessageType = "unsubscribe"
	MsgPing        MessageType = "ping"

	// server to client
	MsgPong                 MessageType = "pong"
	MsgSubscribed           MessageType = "subscribed"
	MsgDiagramChanged       MessageType = "diagram_changed"
	MsgConfirmationRequired MessageType = "confirmation_required"
	MsgOperationFailed      MessageType = "operation_failed"
	MsgError                MessageType = "error"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Subscription names the diagram a client follows.
type Subscription struct {
	ConnectionID string `json:"connection_id"`
	Schema       string `json:"schema"`
}

// OperationFailedPayload is the payload of operation_failed.
type OperationFailedPayload struct {
	ConnectionID string `json:"connection_id"`
	Schema       string `json:"schema"`
	SQL          string `json:"sql"`
	Message      string `json:"message"`
}

// NewMessage creates a new Message with the given type and payload.
func NewMessage(typ MessageType, payload any) ([]byte, error) {
	var p json.RawMessage
	if payload != nil {
		var err error
		p, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Message{Type: typ, Payload: p})
}
