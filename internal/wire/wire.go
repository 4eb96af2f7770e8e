// Package wire defines the JSON frames exchanged with clients over the
// WebSocket and between server instances over the fan-out bus.
package wire

import (
	"encoding/json"

	"github.com/quokka-collab/quokka/internal/domain"
)

// Frame type markers.
const (
	TypeConnect     = "CONNECT"
	TypeDisconnect  = "DISCONNECT"
	TypeCursor      = "CURSOR"
	TypeAcknowledge = "ACKNOWLEDGE"
	TypeExtChange   = "EXT_CHANGE"
)

// ClientFrame is the envelope of every client-to-server message. Only the
// type is decoded up front; edits re-decode the full operation.
type ClientFrame struct {
	Type domain.OperationType `json:"type"`
}

// ChangeMessage carries an accepted, transformed operation from the
// serializer to peer sessions. It is both the bus payload and the frame
// forwarded to peer WebSockets.
type ChangeMessage struct {
	Data      domain.Operation `json:"data"`
	Type      string           `json:"type"`
	UserToken string           `json:"user_token"`
	Revision  int64            `json:"revision"`
}

// AckFrame tells the submitting client its operation was accepted at
// RevisionLog, so it can advance its baseline revision.
type AckFrame struct {
	Type        string `json:"type"`
	RevisionLog int64  `json:"revision_log"`
	UserToken   string `json:"user_token"`
}

// NewAck builds an acknowledgement frame.
func NewAck(revision int64, userToken string) AckFrame {
	return AckFrame{
		Type:        TypeAcknowledge,
		RevisionLog: revision,
		UserToken:   userToken,
	}
}

// PresenceRecord advertises a session to its peers.
type PresenceRecord struct {
	Username    string `json:"username"`
	UserToken   string `json:"user_token"`
	ClientColor string `json:"clientColor"`
}

// LeaveFrame notifies peers that a session disconnected.
type LeaveFrame struct {
	Message   string `json:"message"`
	UserToken string `json:"user_token"`
}

// CursorBroadcast wraps a raw cursor frame with the sender's token so
// peers can place the cursor. Cursor payloads are forwarded verbatim.
type CursorBroadcast struct {
	Data      json.RawMessage `json:"data"`
	UserToken string          `json:"user_token"`
}
