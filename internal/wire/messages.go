// Package wire defines the WebSocket protocol used by the dashboard pages:
// live collection snapshots and the assistant chat.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/estatein/internal/chat"
	"github.com/matthewbaird/estatein/internal/types"
)

// Client message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeChat        = "chat"
	TypePing        = "ping"
)

// Server message types.
const (
	TypeSession  = "session"
	TypeSnapshot = "snapshot"
	TypeReply    = "reply"
	TypeError    = "error"
	TypePong     = "pong"
)

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SubscribeData is the payload of "subscribe" and "unsubscribe".
type SubscribeData struct {
	Collection string      `json:"collection"`
	Order      types.Order `json:"order"`
}

// ChatData is the payload of "chat".
type ChatData struct {
	Message string `json:"message"`
}

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// SessionData greets a new connection.
type SessionData struct {
	Username    string   `json:"username"`
	Collections []string `json:"collections"`
	Suggestions []string `json:"suggestions"`
}

// SnapshotData is one live frame of a collection page.
type SnapshotData struct {
	Collection string          `json:"collection"`
	State      types.PageState `json:"state"`
	Seq        uint64          `json:"seq"`
	Cards      []types.Card    `json:"cards"`
}

// ReplyData carries one assistant reply.
type ReplyData struct {
	Reply   chat.Reply `json:"reply"`
	Pending bool       `json:"pending"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
