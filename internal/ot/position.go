// Package ot implements the operational transformation algebra over
// (line, ch) positions: adjusting positions past concurrent edits,
// transforming an operation against earlier concurrent history, and
// applying an operation to document content.
package ot

import (
	"unicode/utf8"

	"github.com/quokka-collab/quokka/internal/domain"
)

// Adjust returns where pos lands after an additive edit at prevPos whose
// first inserted line is prevFirstLine. Positions before the insertion
// point are unaffected; positions at or after it on the same line shift
// right by the inserted length. Positions on later lines are unaffected.
func Adjust(pos, prevPos domain.Position, prevFirstLine string) domain.Position {
	if pos.Line != prevPos.Line {
		return pos
	}
	if pos.Ch < prevPos.Ch {
		return pos
	}
	return domain.Position{
		Line: pos.Line,
		Ch:   pos.Ch + utf8.RuneCountInString(prevFirstLine),
	}
}

// adjustPastDelete returns where pos lands after a range delete from
// prevFrom to prevTo. Positions at or before the delete start are
// unaffected; positions inside the deleted range collapse onto its start;
// positions after it shift back by the removed span.
func adjustPastDelete(pos, prevFrom, prevTo domain.Position) domain.Position {
	if pos.BeforeOrEqual(prevFrom) {
		return pos
	}
	if pos.Before(prevTo) {
		return prevFrom
	}
	if pos.Line == prevTo.Line {
		return domain.Position{
			Line: prevFrom.Line,
			Ch:   prevFrom.Ch + (pos.Ch - prevTo.Ch),
		}
	}
	return domain.Position{
		Line: pos.Line - (prevTo.Line - prevFrom.Line),
		Ch:   pos.Ch,
	}
}
