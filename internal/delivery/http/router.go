package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter builds the routing table. REST routes run behind the recovery
// and logging middleware; the WebSocket route stays outside it so the
// hijacked connection is not wrapped.
func NewRouter(h *Handler) http.Handler {
	root := mux.NewRouter()
	root.HandleFunc("/ws/{document_id}", h.ServeWS).Methods(http.MethodGet)

	api := root.PathPrefix("/api").Subrouter()
	api.Use(RecoveryMiddleware(h.logger), LoggingMiddleware(h.logger))

	api.HandleFunc("/users/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/users/login", h.Login).Methods(http.MethodPost)

	api.HandleFunc("/documents", h.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents", h.CreateDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/from-template/{template_id}", h.CreateDocumentFromTemplate).Methods(http.MethodPost)
	api.HandleFunc("/documents/{document_id}", h.GetDocument).Methods(http.MethodGet)
	api.HandleFunc("/documents/{document_id}", h.UpdateDocument).Methods(http.MethodPatch)
	api.HandleFunc("/documents/{document_id}/share", h.ShareDocument).Methods(http.MethodPatch)
	api.HandleFunc("/documents/{document_id}", h.DeleteDocument).Methods(http.MethodDelete)

	api.HandleFunc("/templates", h.ListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates", h.CreateTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates/{template_id}", h.DeleteTemplate).Methods(http.MethodDelete)

	return root
}
