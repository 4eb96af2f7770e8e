package domain

import (
	"context"
	"strings"
	"time"
)

// ShareRole is the access level granted by a document's share link.
type ShareRole string

const (
	RoleRead    ShareRole = "READ"
	RoleComment ShareRole = "COMMENT"
	RoleEdit    ShareRole = "EDIT"
)

// Document is a collaboratively edited text document. Content is stored as
// an ordered sequence of lines; LastRevision is the server's causal clock
// for the document and equals the highest logged operation revision.
type Document struct {
	ID           string    `bson:"_id" json:"id"`
	Title        string    `bson:"title" json:"title"`
	Content      []string  `bson:"content" json:"content"`
	LastRevision int64     `bson:"last_revision" json:"lastRevision"`
	UserID       string    `bson:"user_id" json:"userId"`
	ShareRole    ShareRole `bson:"share_role" json:"shareRole"`
	SharedByLink bool      `bson:"shared_by_link" json:"sharedByLink"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updatedAt"`
}

// SplitContent converts a raw text blob into document lines.
// An empty blob yields a single empty line so positions stay addressable.
func SplitContent(raw string) []string {
	return strings.Split(raw, "\n")
}

// JoinContent converts document lines back into a raw text blob.
func JoinContent(lines []string) string {
	return strings.Join(lines, "\n")
}

// DocumentTemplate seeds new documents with predefined content.
type DocumentTemplate struct {
	ID      string `bson:"_id" json:"id"`
	Title   string `bson:"title" json:"title"`
	Content string `bson:"content" json:"content"`
}

// DocumentStore persists documents. Content and LastRevision are mutated
// only by the serializer through UpdateContent; everything else belongs to
// the CRUD layer.
type DocumentStore interface {
	// Get retrieves a document by ID. Returns ErrNotFound when absent.
	Get(ctx context.Context, id string) (*Document, error)
	// Insert stores a new document.
	Insert(ctx context.Context, doc *Document) error
	// Update replaces the document's CRUD-owned fields (title, sharing).
	Update(ctx context.Context, doc *Document) error
	// UpdateContent sets content and last_revision, guarded on the current
	// last_revision. Returns ErrRevisionConflict if the guard fails.
	UpdateContent(ctx context.Context, id string, content []string, fromRevision, toRevision int64) error
	// Delete removes a document. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id string) error
	// ListByUser returns the documents owned by a user.
	ListByUser(ctx context.Context, userID string) ([]*Document, error)
}

// OperationLog is the append-only per-document operation history.
type OperationLog interface {
	// Append stores an accepted operation. Appending the same revision with
	// identical content is a no-op; a differing payload on an existing
	// revision returns ErrRevisionConflict.
	Append(ctx context.Context, documentID string, op LoggedOperation) error
	// Since returns the logged operations with revision strictly greater
	// than revisionExclusive, ascending by revision.
	Since(ctx context.Context, documentID string, revisionExclusive int64) ([]LoggedOperation, error)
	// MaxRevision returns the highest logged revision, or 0 when the log
	// is empty.
	MaxRevision(ctx context.Context, documentID string) (int64, error)
	// DeleteAll drops a document's history. Used when the document itself
	// is deleted.
	DeleteAll(ctx context.Context, documentID string) error
}

// TemplateStore persists document templates.
type TemplateStore interface {
	Get(ctx context.Context, id string) (*DocumentTemplate, error)
	Insert(ctx context.Context, tpl *DocumentTemplate) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*DocumentTemplate, error)
}
