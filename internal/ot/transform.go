package ot

import (
	"fmt"

	"github.com/quokka-collab/quokka/internal/domain"
)

// Transform rebases newOp against prevOp, an earlier operation newOp's
// client had not yet seen, so that applying newOp after prevOp has the
// effect the client intended. Text, type and revision are preserved.
func Transform(newOp, prevOp domain.Operation) (domain.Operation, error) {
	switch {
	case newOp.Type.IsAdditive() && prevOp.Type.IsAdditive():
		if len(prevOp.Text) == 0 {
			return domain.Operation{}, fmt.Errorf("%w: additive operation without text", domain.ErrInvalidOperation)
		}
		out := newOp
		out.FromPos = Adjust(newOp.FromPos, prevOp.FromPos, prevOp.Text[0])
		out.ToPos = Adjust(newOp.ToPos, prevOp.FromPos, prevOp.Text[0])
		return out, nil

	case newOp.Type.IsAdditive() && prevOp.Type == domain.OperationDelete:
		out := newOp
		out.FromPos = adjustPastDelete(newOp.FromPos, prevOp.FromPos, prevOp.ToPos)
		out.ToPos = adjustPastDelete(newOp.ToPos, prevOp.FromPos, prevOp.ToPos)
		return out, nil

	case newOp.Type == domain.OperationDelete && prevOp.Type.IsAdditive():
		if len(prevOp.Text) == 0 {
			return domain.Operation{}, fmt.Errorf("%w: additive operation without text", domain.ErrInvalidOperation)
		}
		// Only the start of the deleted range is rebased; the end is kept
		// as submitted.
		out := newOp
		out.FromPos = Adjust(newOp.FromPos, prevOp.FromPos, prevOp.Text[0])
		return out, nil

	case newOp.Type == domain.OperationDelete && prevOp.Type == domain.OperationDelete:
		// Correct for disjoint ranges; overlapping deletes keep the
		// source behavior of passing through unchanged.
		return newOp, nil
	}

	return domain.Operation{}, fmt.Errorf("%w: cannot transform %s against %s",
		domain.ErrInvalidOperation, newOp.Type, prevOp.Type)
}
