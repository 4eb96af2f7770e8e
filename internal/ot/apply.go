package ot

import (
	"fmt"

	"github.com/quokka-collab/quokka/internal/domain"
)

// Apply splices op into content and returns the resulting lines. The
// input slice is not mutated. Positions outside the current content
// produce ErrBadRange; CURSOR and unknown types produce
// ErrInvalidOperation.
func Apply(content []string, op domain.Operation) ([]string, error) {
	if !op.Type.IsEdit() {
		return nil, fmt.Errorf("%w: cannot apply %s", domain.ErrInvalidOperation, op.Type)
	}
	if len(op.Text) == 0 {
		return nil, fmt.Errorf("%w: operation without text", domain.ErrInvalidOperation)
	}
	if len(content) == 0 {
		content = []string{""}
	}
	if err := checkRange(content, op.FromPos, op.ToPos); err != nil {
		return nil, err
	}

	before := runePrefix(content[op.FromPos.Line], op.FromPos.Ch)
	after := runeSuffix(content[op.ToPos.Line], op.ToPos.Ch)

	var combined []string
	if op.Type == domain.OperationDelete {
		// text[0] carries the boundary characters of the deleted range,
		// typically empty.
		combined = []string{before + op.Text[0] + after}
	} else {
		switch n := len(op.Text); {
		case n == 1:
			combined = []string{before + op.Text[0] + after}
		case n == 2:
			combined = []string{before + op.Text[0], op.Text[1] + after}
		default:
			combined = make([]string, 0, n)
			combined = append(combined, before+op.Text[0])
			combined = append(combined, op.Text[1:n-1]...)
			combined = append(combined, op.Text[n-1]+after)
		}
	}

	result := make([]string, 0, len(content)-(op.ToPos.Line-op.FromPos.Line+1)+len(combined))
	result = append(result, content[:op.FromPos.Line]...)
	result = append(result, combined...)
	result = append(result, content[op.ToPos.Line+1:]...)
	return result, nil
}

func checkRange(content []string, from, to domain.Position) error {
	if from.Line < 0 || from.Ch < 0 || to.Line < 0 || to.Ch < 0 {
		return fmt.Errorf("%w: negative position", domain.ErrBadRange)
	}
	if from.Line >= len(content) || to.Line >= len(content) {
		return fmt.Errorf("%w: line %d beyond %d lines", domain.ErrBadRange, max(from.Line, to.Line), len(content))
	}
	if to.Before(from) {
		return fmt.Errorf("%w: to_pos precedes from_pos", domain.ErrBadRange)
	}
	if from.Ch > lineLen(content[from.Line]) || to.Ch > lineLen(content[to.Line]) {
		return fmt.Errorf("%w: ch beyond line end", domain.ErrBadRange)
	}
	return nil
}

func lineLen(line string) int {
	return len([]rune(line))
}

func runePrefix(line string, ch int) string {
	return string([]rune(line)[:ch])
}

func runeSuffix(line string, ch int) string {
	return string([]rune(line)[ch:])
}
