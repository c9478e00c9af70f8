package server

import (
	"encoding/json"
	"time"

	"github.com/chenaaron3/huffleshuffle-engine/internal/scan"
	"github.com/chenaaron3/huffleshuffle-engine/internal/table"
)

// MessageType identifies a WebSocket message
type MessageType string

const (
	// Client → Server
	MsgAuth      MessageType = "auth"
	MsgCommand   MessageType = "command"
	MsgScan      MessageType = "scan"
	MsgSnapshot  MessageType = "snapshot"
	MsgSubscribe MessageType = "subscribe"

	// Server → Client
	MsgAuthOK       MessageType = "auth_ok"
	MsgCommandOK    MessageType = "command_ok"
	MsgSnapshotData MessageType = "snapshot_data"
	MsgEvent        MessageType = "event"
	MsgError        MessageType = "error"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// AuthData identifies the caller for the rest of the connection
type AuthData struct {
	UserID string `json:"userId"`
}

// CommandData carries one table command; the actor's user id comes from the
// connection's auth, never from the payload.
type CommandData struct {
	TableID    string            `json:"tableId"`
	Role       table.Role        `json:"actorRole"`
	Kind       table.CommandKind `json:"kind"`
	Amount     int64             `json:"amount,omitempty"`
	Card       string            `json:"card,omitempty"`
	SeatNumber int               `json:"seatNumber,omitempty"`
}

// ScanData is a raw scanner delivery
type ScanData = scan.Message

// SnapshotRequestData asks for the viewer's read model of a table
type SnapshotRequestData struct {
	TableID string `json:"tableId"`
}

// SubscribeData registers the connection for a table's event stream
type SubscribeData struct {
	TableID string `json:"tableId"`
}

// ErrorData reports a failed request
type ErrorData struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
