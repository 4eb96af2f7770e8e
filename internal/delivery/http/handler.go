// Package http exposes the REST and WebSocket surface of the editor.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/quokka-collab/quokka/internal/auth"
	"github.com/quokka-collab/quokka/internal/domain"
	"github.com/quokka-collab/quokka/internal/session"
)

// Handler carries the dependencies shared by all HTTP endpoints.
type Handler struct {
	docs      domain.DocumentStore
	oplog     domain.OperationLog
	templates domain.TemplateStore
	users     domain.UserStore
	auth      *auth.Service
	sessions  *session.Handler
	logger    *zap.Logger
}

// NewHandler wires the HTTP handler.
func NewHandler(
	docs domain.DocumentStore,
	oplog domain.OperationLog,
	templates domain.TemplateStore,
	users domain.UserStore,
	authSvc *auth.Service,
	sessions *session.Handler,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		docs:      docs,
		oplog:     oplog,
		templates: templates,
		users:     users,
		auth:      authSvc,
		sessions:  sessions,
		logger:    logger,
	}
}

// bearerToken extracts the token from the Authorization header, falling
// back to the token query parameter for WebSocket clients, which cannot
// set headers from the browser.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// identity resolves the request's user, nil for anonymous requests.
func (h *Handler) identity(r *http.Request) (*domain.User, error) {
	return h.auth.Identity(r.Context(), bearerToken(r))
}

// requireUser resolves the request's user and writes a 401 when there is
// none. The caller must return when ok is false.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, err := h.identity(r)
	if err != nil || user == nil {
		h.respondError(w, r, domain.ErrAuthFailure)
		return nil, false
	}
	return user, true
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

// errForbidden marks requests by a known user against someone else's
// document.
var errForbidden = errors.New("forbidden")

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrRevisionConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrAuthFailure):
		status = http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidOperation), errors.Is(err, domain.ErrBadRange):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	h.respondJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeBody decodes a JSON request body, answering 400 on failure. The
// caller must return when ok is false.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}
