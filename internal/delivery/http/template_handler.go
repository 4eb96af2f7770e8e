package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/quokka-collab/quokka/internal/domain"
)

// ListTemplates returns every document template.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	templates, err := h.templates.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, templates)
}

// CreateTemplate stores a new document template.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	tpl := &domain.DocumentTemplate{
		ID:      uuid.NewString(),
		Title:   req.Title,
		Content: req.Content,
	}
	if err := h.templates.Insert(r.Context(), tpl); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, tpl)
}

// DeleteTemplate removes a document template.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	if err := h.templates.Delete(r.Context(), mux.Vars(r)["template_id"]); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}
