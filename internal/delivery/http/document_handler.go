package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/quokka-collab/quokka/internal/domain"
)

// documentResponse is the REST view of a document. Content travels as a
// single text blob; the line-based representation stays internal.
type documentResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Content      string           `json:"content"`
	LastRevision int64            `json:"last_revision"`
	ShareRole    domain.ShareRole `json:"share_role"`
	SharedByLink bool             `json:"shared_by_link"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func toDocumentResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:           doc.ID,
		Title:        doc.Title,
		Content:      domain.JoinContent(doc.Content),
		LastRevision: doc.LastRevision,
		ShareRole:    doc.ShareRole,
		SharedByLink: doc.SharedByLink,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

// CreateDocument creates an empty or pre-filled document owned by the
// requesting user.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
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
		req.Title = "Untitled document"
	}

	now := time.Now()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Content:   domain.SplitContent(req.Content),
		UserID:    user.ID,
		ShareRole: domain.RoleRead,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.docs.Insert(r.Context(), doc); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// CreateDocumentFromTemplate creates a document seeded with a template's
// content.
func (h *Handler) CreateDocumentFromTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	tpl, err := h.templates.Get(r.Context(), mux.Vars(r)["template_id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	now := time.Now()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     tpl.Title,
		Content:   domain.SplitContent(tpl.Content),
		UserID:    user.ID,
		ShareRole: domain.RoleRead,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.docs.Insert(r.Context(), doc); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// ListDocuments returns the requesting user's documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	docs, err := h.docs.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	h.respondJSON(w, http.StatusOK, out)
}

// GetDocument returns a document to its owner or to anyone holding an
// active share link.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	user, err := h.identity(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	doc, err := h.docs.Get(r.Context(), mux.Vars(r)["document_id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	owner := user != nil && user.ID == doc.UserID
	if !owner && !doc.SharedByLink {
		h.respondError(w, r, domain.ErrNotFound)
		return
	}
	h.respondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// UpdateDocument renames a document. Owner only.
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Title != "" {
		doc.Title = req.Title
	}
	doc.UpdatedAt = time.Now()

	if err := h.docs.Update(r.Context(), doc); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// ShareDocument toggles the share link and its access role. Owner only.
func (h *Handler) ShareDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	var req struct {
		SharedByLink *bool             `json:"shared_by_link"`
		ShareRole    *domain.ShareRole `json:"share_role"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.ShareRole != nil {
		switch *req.ShareRole {
		case domain.RoleRead, domain.RoleComment, domain.RoleEdit:
			doc.ShareRole = *req.ShareRole
		default:
			h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown share role"})
			return
		}
	}
	if req.SharedByLink != nil {
		doc.SharedByLink = *req.SharedByLink
	}
	doc.UpdatedAt = time.Now()

	if err := h.docs.Update(r.Context(), doc); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// DeleteDocument removes a document and its operation history. Owner only.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.ownedDocument(w, r)
	if !ok {
		return
	}

	if err := h.docs.Delete(r.Context(), doc.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.oplog.DeleteAll(r.Context(), doc.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusNoContent, nil)
}

// ownedDocument loads the routed document and checks the requesting user
// owns it. The caller must return when ok is false.
func (h *Handler) ownedDocument(w http.ResponseWriter, r *http.Request) (*domain.Document, bool) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return nil, false
	}
	doc, err := h.docs.Get(r.Context(), mux.Vars(r)["document_id"])
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	if doc.UserID != user.ID {
		h.respondError(w, r, errForbidden)
		return nil, false
	}
	return doc, true
}
