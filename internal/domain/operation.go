package domain

import "time"

// Position is a zero-based (line, ch) coordinate into a document.
// Ch indexes into the character sequence of the line.
type Position struct {
	Line int `json:"line" bson:"line"`
	Ch   int `json:"ch" bson:"ch"`
}

// Before reports whether p orders strictly before other, lexicographically
// on (line, ch).
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Ch < other.Ch
}

// BeforeOrEqual reports whether p orders before or equal to other.
func (p Position) BeforeOrEqual(other Position) bool {
	return !other.Before(p)
}

// OperationType is the semantic class of an operation.
type OperationType string

const (
	// OperationInput is a typed edit.
	OperationInput OperationType = "INPUT"
	// OperationPaste is a pasted edit.
	OperationPaste OperationType = "PASTE"
	// OperationUndo is an undo replayed by the client as an edit.
	OperationUndo OperationType = "UNDO"
	// OperationDelete removes a range.
	OperationDelete OperationType = "DELETE"
	// OperationCursor is a presence message. It is never logged and never
	// advances the document revision.
	OperationCursor OperationType = "CURSOR"
)

// IsAdditive reports whether the type inserts or replaces text.
// INPUT, PASTE and UNDO are treated identically by transform and apply.
func (t OperationType) IsAdditive() bool {
	return t == OperationInput || t == OperationPaste || t == OperationUndo
}

// IsEdit reports whether the type mutates document content.
func (t OperationType) IsEdit() bool {
	return t.IsAdditive() || t == OperationDelete
}

// Operation is a single client edit in wire and log form.
type Operation struct {
	FromPos Position      `json:"from_pos" bson:"from_pos"`
	ToPos   Position      `json:"to_pos" bson:"to_pos"`
	Text    []string      `json:"text" bson:"text"`
	Type    OperationType `json:"type" bson:"type"`
	// Revision is the client's last-known server revision on the way in,
	// and the assigned revision once accepted.
	Revision int64 `json:"revision" bson:"revision"`
}

// LoggedOperation is an accepted operation stored against a document.
type LoggedOperation struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	DocumentID string    `bson:"document_id" json:"documentId"`
	Operation  Operation `bson:"operation" json:"operation"`
	Revision   int64     `bson:"revision" json:"revision"`
	CreatedAt  time.Time `bson:"created_at" json:"createdAt"`
}

// OperationEnvelope is the queue payload a session pushes for the
// per-document worker: the raw client operation plus the submitter's
// session token, which routes the acknowledgement back.
type OperationEnvelope struct {
	Data      Operation `json:"data"`
	UserToken string    `json:"user_token"`
}
