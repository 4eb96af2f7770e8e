// Package session manages live WebSocket editing sessions: per-process
// presence, cursor fan-out and the bridge between a client connection and
// the document's serializer queue.
package session

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/quokka-collab/quokka/internal/wire"
)

// Sender delivers one JSON payload to a session's client. Implementations
// must be safe for concurrent use; a returned error marks the session dead.
type Sender interface {
	Send(payload []byte) error
}

// Meta describes a registered session for presence purposes.
type Meta struct {
	SessionToken string
	Username     string
	ClientColor  string
}

// Record pairs a sender with its presence metadata.
type Record struct {
	Sender Sender
	Meta   Meta
}

// Registry tracks the sessions of this process, keyed by document. It
// serves the initial peer list and broadcasts presence and cursor frames,
// which never touch the cross-process bus.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[Sender]Meta
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]map[Sender]Meta),
		logger:   logger,
	}
}

// Register adds a session to a document's roster.
func (r *Registry) Register(documentID string, s Sender, meta Meta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[documentID] == nil {
		r.sessions[documentID] = make(map[Sender]Meta)
	}
	r.sessions[documentID][s] = meta
}

// Unregister removes a session from a document's roster.
func (r *Registry) Unregister(documentID string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions[documentID], s)
	if len(r.sessions[documentID]) == 0 {
		delete(r.sessions, documentID)
	}
}

// Peers returns the presence records of a document's current sessions,
// excluding the session identified by selfToken.
func (r *Registry) Peers(documentID, selfToken string) []wire.PresenceRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peers := make([]wire.PresenceRecord, 0, len(r.sessions[documentID]))
	for _, meta := range r.sessions[documentID] {
		if meta.SessionToken == selfToken {
			continue
		}
		peers = append(peers, wire.PresenceRecord{
			Username:    meta.Username,
			UserToken:   meta.SessionToken,
			ClientColor: meta.ClientColor,
		})
	}
	return peers
}

// Broadcast sends payload to every session of a document except the
// submitter. When ackRevision is positive the submitter instead receives
// an acknowledgement frame carrying that revision; otherwise the submitter
// is skipped. A failed send drops the frame for that session only.
func (r *Registry) Broadcast(documentID string, payload []byte, submitterToken string, ackRevision int64) {
	r.mu.RLock()
	records := make([]Record, 0, len(r.sessions[documentID]))
	for s, meta := range r.sessions[documentID] {
		records = append(records, Record{Sender: s, Meta: meta})
	}
	r.mu.RUnlock()

	for _, rec := range records {
		out := payload
		if rec.Meta.SessionToken == submitterToken {
			if ackRevision <= 0 {
				continue
			}
			ack, err := json.Marshal(wire.NewAck(ackRevision, submitterToken))
			if err != nil {
				continue
			}
			out = ack
		}
		if err := rec.Sender.Send(out); err != nil {
			r.logger.Warn("Dropping frame for unreachable session",
				zap.String("document_id", documentID),
				zap.String("session_token", rec.Meta.SessionToken),
				zap.Error(err))
		}
	}
}
