package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quokka-collab/quokka/internal/auth"
	"github.com/quokka-collab/quokka/internal/domain"
)

// Register creates a new account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "username and password are required"})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	user := &domain.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashed,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	if err := h.users.Insert(r.Context(), user); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, user)
}

// Login verifies credentials and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if err != nil || !user.IsActive || !auth.CheckPassword(user.HashedPassword, req.Password) {
		h.respondError(w, r, domain.ErrAuthFailure)
		return
	}

	token, err := h.auth.EncodeToken(user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}
