package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quokka-collab/quokka/internal/auth"
	"github.com/quokka-collab/quokka/internal/broker"
	"github.com/quokka-collab/quokka/internal/domain"
	"github.com/quokka-collab/quokka/internal/wire"
)

// Conn is the subset of a WebSocket connection the session handler uses.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Submitter hands client edits to the per-document serializer.
type Submitter interface {
	Submit(ctx context.Context, documentID string, env domain.OperationEnvelope) error
}

// IdentityResolver turns a bearer token into a user, nil for anonymous.
type IdentityResolver interface {
	Identity(ctx context.Context, token string) (*domain.User, error)
}

// connSender serializes writes to a connection. gorilla/websocket permits
// only one concurrent writer, and a session writes from both the read loop
// and the bus forwarder.
type connSender struct {
	mu   sync.Mutex
	conn Conn
}

func (s *connSender) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Handler runs the lifecycle of editing sessions for all documents.
type Handler struct {
	docs     domain.DocumentStore
	identity IdentityResolver
	registry *Registry
	bus      broker.Broker
	worker   Submitter
	logger   *zap.Logger
}

// NewHandler wires a session handler.
func NewHandler(docs domain.DocumentStore, identity IdentityResolver, registry *Registry, bus broker.Broker, worker Submitter, logger *zap.Logger) *Handler {
	return &Handler{
		docs:     docs,
		identity: identity,
		registry: registry,
		bus:      bus,
		worker:   worker,
		logger:   logger,
	}
}

// Serve runs one editing session until the client disconnects or the
// connection dies. It owns conn and closes it on return.
func (h *Handler) Serve(ctx context.Context, conn Conn, documentID, bearerToken string) {
	defer conn.Close()

	user, err := h.identity.Identity(ctx, bearerToken)
	if err != nil {
		h.refuse(conn, "authentication failed")
		return
	}

	doc, err := h.docs.Get(ctx, documentID)
	if err != nil {
		h.refuse(conn, "document not found")
		return
	}
	// Anonymous sessions are admitted only through an active share link.
	if user == nil && !doc.SharedByLink {
		h.refuse(conn, "document is not shared")
		return
	}
	readOnly := !auth.MayEdit(user, doc)

	// Known users route acknowledgements by their user ID; anonymous
	// sessions get a synthetic token stable for the connection's lifetime.
	sessionToken := uuid.NewString()
	username := "anonymous"
	if user != nil {
		sessionToken = user.ID
		username = user.Username
	}
	sender := &connSender{conn: conn}
	meta := Meta{
		SessionToken: sessionToken,
		Username:     username,
		ClientColor:  ColorFor(sessionToken),
	}

	if err := h.sendPeerList(sender, documentID, sessionToken); err != nil {
		return
	}
	h.registry.Register(documentID, sender, meta)
	h.announceJoin(documentID, sessionToken, meta)

	sub, err := h.bus.Subscribe(ctx, broker.ChannelPattern(documentID))
	if err != nil {
		h.logger.Error("Failed to subscribe to document fan-out",
			zap.String("document_id", documentID),
			zap.Error(err))
		h.registry.Unregister(documentID, sender)
		return
	}

	go h.forward(conn, sender, sub, sessionToken, documentID)

	h.logger.Info("Session connected",
		zap.String("document_id", documentID),
		zap.String("session_token", sessionToken),
		zap.String("username", username),
		zap.Bool("read_only", readOnly))

	h.readLoop(ctx, conn, documentID, sessionToken, readOnly)

	_ = sub.Unsubscribe()
	h.registry.Unregister(documentID, sender)
	h.announceLeave(documentID, sessionToken)

	h.logger.Info("Session disconnected",
		zap.String("document_id", documentID),
		zap.String("session_token", sessionToken))
}

// refuse closes the connection with a policy-violation close frame.
func (h *Handler) refuse(conn Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteMessage(websocket.CloseMessage, msg)
}

// sendPeerList delivers the roster of already-connected sessions so the
// client can render their cursors before any of them moves.
func (h *Handler) sendPeerList(sender Sender, documentID, sessionToken string) error {
	peers := h.registry.Peers(documentID, sessionToken)
	payload, err := json.Marshal(peers)
	if err != nil {
		return err
	}
	return sender.Send(payload)
}

// announceJoin tells the document's other sessions about the newcomer.
func (h *Handler) announceJoin(documentID, sessionToken string, meta Meta) {
	payload, err := json.Marshal(wire.PresenceRecord{
		Username:    meta.Username,
		UserToken:   meta.SessionToken,
		ClientColor: meta.ClientColor,
	})
	if err != nil {
		return
	}
	h.registry.Broadcast(documentID, payload, sessionToken, 0)
}

// announceLeave tells the document's remaining sessions this one is gone.
func (h *Handler) announceLeave(documentID, sessionToken string) {
	payload, err := json.Marshal(wire.LeaveFrame{
		Message:   fmt.Sprintf("User %s Disconnected from the file.", sessionToken),
		UserToken: sessionToken,
	})
	if err != nil {
		return
	}
	h.registry.Broadcast(documentID, payload, sessionToken, 0)
}

// forward relays accepted operations from the bus to the client. The
// session subscribes to the whole document pattern and routes by the
// embedded token: its own messages become acknowledgements, everyone
// else's are forwarded verbatim. A failed write closes the connection,
// which in turn ends the read loop.
func (h *Handler) forward(conn Conn, sender Sender, sub broker.Subscription, sessionToken, documentID string) {
	for msg := range sub.Messages() {
		var change wire.ChangeMessage
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			h.logger.Warn("Dropping malformed bus message",
				zap.String("document_id", documentID),
				zap.Error(err))
			continue
		}

		out := msg.Payload
		if change.UserToken == sessionToken {
			out, _ = json.Marshal(wire.NewAck(change.Revision, sessionToken))
		}
		if err := sender.Send(out); err != nil {
			_ = conn.Close()
			return
		}
	}
}

// readLoop consumes client frames until the connection ends. Cursor frames
// fan out to local peers and never touch the queue; edit frames go to the
// serializer unless the session is read-only, in which case they are
// dropped.
func (h *Handler) readLoop(ctx context.Context, conn Conn, documentID, sessionToken string, readOnly bool) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var frame wire.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Warn("Dropping unparseable client frame",
				zap.String("document_id", documentID),
				zap.String("session_token", sessionToken),
				zap.Error(err))
			continue
		}

		if frame.Type == domain.OperationCursor {
			payload, err := json.Marshal(wire.CursorBroadcast{Data: data, UserToken: sessionToken})
			if err != nil {
				continue
			}
			h.registry.Broadcast(documentID, payload, sessionToken, 0)
			continue
		}

		if readOnly {
			h.logger.Debug("Dropping edit from read-only session",
				zap.String("document_id", documentID),
				zap.String("session_token", sessionToken))
			continue
		}

		var op domain.Operation
		if err := json.Unmarshal(data, &op); err != nil {
			h.logger.Warn("Dropping unparseable operation",
				zap.String("document_id", documentID),
				zap.String("session_token", sessionToken),
				zap.Error(err))
			continue
		}
		env := domain.OperationEnvelope{Data: op, UserToken: sessionToken}
		if err := h.worker.Submit(ctx, documentID, env); err != nil {
			h.logger.Error("Failed to submit operation",
				zap.String("document_id", documentID),
				zap.String("session_token", sessionToken),
				zap.Error(err))
		}
	}
}
