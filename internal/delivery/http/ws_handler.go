package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The editor frontend is served from a different origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and runs an editing session on it.
// Authorization happens inside the session: browsers cannot set headers
// on WebSocket requests, so the token arrives as a query parameter.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["document_id"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed",
			zap.String("document_id", documentID),
			zap.Error(err))
		return
	}

	h.sessions.Serve(r.Context(), conn, documentID, bearerToken(r))
}
