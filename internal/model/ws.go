package model

import "encoding/json"

type MessageType string

const (
	MessageTypeSubscribe     MessageType = "subscribe"
	MessageTypeSubscribed    MessageType = "subscribed"
	MessageTypePing          MessageType = "ping"
	MessageTypePong          MessageType = "pong"
	MessageTypeOrderAdded    MessageType = "order_added"
	MessageTypeOrderModified MessageType = "order_modified"
	MessageTypeOrderRemoved  MessageType = "order_removed"
	MessageTypeError         MessageType = "error"
)

// --- WebSocket Messages ---

type WSMessage struct {
	Type    MessageType     `json:"type"`
	Station string          `json:"station,omitempty"`
	Order   json.RawMessage `json:"order,omitempty"` // decoded per message type
	Error   string          `json:"error,omitempty"`
}

// ChangeType maps an order message to its change kind.
func (t MessageType) ChangeType() (ChangeType, bool) {
	switch t {
	case MessageTypeOrderAdded:
		return ChangeAdded, true
	case MessageTypeOrderModified:
		return ChangeModified, true
	case MessageTypeOrderRemoved:
		return ChangeRemoved, true
	}
	return "", false
}
