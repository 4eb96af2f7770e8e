package ot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quokka-collab/quokka/internal/domain"
)

func input(fromLine, fromCh, toLine, toCh int, text ...string) domain.Operation {
	return domain.Operation{
		FromPos: domain.Position{Line: fromLine, Ch: fromCh},
		ToPos:   domain.Position{Line: toLine, Ch: toCh},
		Text:    text,
		Type:    domain.OperationInput,
	}
}

func deleteOp(fromLine, fromCh, toLine, toCh int) domain.Operation {
	return domain.Operation{
		FromPos: domain.Position{Line: fromLine, Ch: fromCh},
		ToPos:   domain.Position{Line: toLine, Ch: toCh},
		Text:    []string{""},
		Type:    domain.OperationDelete,
	}
}

func TestApplyInsertAtHead(t *testing.T) {
	content, err := Apply([]string{"hello"}, input(0, 0, 0, 0, "Hi, "))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi, hello"}, content)
}

func TestApplyMultiLineInsert(t *testing.T) {
	content, err := Apply([]string{"line1", "line2"}, input(0, 5, 0, 5, "A", "B", "C"))
	require.NoError(t, err)
	assert.Equal(t, []string{"line1A", "B", "Cline2"}, content)
}

func TestApplyTwoLineInsert(t *testing.T) {
	content, err := Apply([]string{"ab"}, input(0, 1, 0, 1, "X", "Y"))
	require.NoError(t, err)
	assert.Equal(t, []string{"aX", "Yb"}, content)
}

func TestApplyRangeDelete(t *testing.T) {
	content, err := Apply([]string{"abc def", "ghi"}, deleteOp(0, 0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{" def", "ghi"}, content)
}

func TestApplyMultiLineDelete(t *testing.T) {
	content, err := Apply([]string{"abcd", "efgh", "ijkl"}, deleteOp(0, 2, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"abfgh", "ijkl"}, content)
}

func TestApplyReplaceRange(t *testing.T) {
	content, err := Apply([]string{"hello world"}, input(0, 0, 0, 5, "goodbye"))
	require.NoError(t, err)
	assert.Equal(t, []string{"goodbye world"}, content)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	original := []string{"hello"}
	_, err := Apply(original, input(0, 0, 0, 0, "x"))
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, original)
}

func TestApplyEmptyContent(t *testing.T) {
	content, err := Apply(nil, input(0, 0, 0, 0, "first"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, content)
}

func TestApplyBadRange(t *testing.T) {
	cases := map[string]domain.Operation{
		"line beyond content": input(3, 0, 3, 0, "x"),
		"ch beyond line":      input(0, 10, 0, 10, "x"),
		"inverted range":      input(0, 3, 0, 1, "x"),
		"negative position":   input(-1, 0, 0, 0, "x"),
	}
	for name, op := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Apply([]string{"abc"}, op)
			assert.ErrorIs(t, err, domain.ErrBadRange)
		})
	}
}

func TestApplyRejectsCursor(t *testing.T) {
	op := input(0, 0, 0, 0, "x")
	op.Type = domain.OperationCursor
	_, err := Apply([]string{"abc"}, op)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestTransformIdentity(t *testing.T) {
	noop := input(0, 0, 0, 0, "")
	op := input(0, 2, 0, 2, "Y")
	got, err := Transform(op, noop)
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestTransformConcurrentInsertsConverge(t *testing.T) {
	content := []string{"abc"}
	a := input(0, 0, 0, 0, "X")
	b := input(0, 2, 0, 2, "Y")

	afterA, err := Apply(content, a)
	require.NoError(t, err)
	bPrime, err := Transform(b, a)
	require.NoError(t, err)
	left, err := Apply(afterA, bPrime)
	require.NoError(t, err)

	afterB, err := Apply(content, b)
	require.NoError(t, err)
	aPrime, err := Transform(a, b)
	require.NoError(t, err)
	right, err := Apply(afterB, aPrime)
	require.NoError(t, err)

	assert.Equal(t, []string{"XabYc"}, left)
	assert.Equal(t, left, right)
}

func TestTransformInsertPastDelete(t *testing.T) {
	// A delete of (0,1)..(0,2) was applied first; an insert intended for
	// (0,4) of the old content lands at (0,3) of the new content.
	prev := deleteOp(0, 1, 0, 2)
	op := input(0, 4, 0, 4, "Z")

	got, err := Transform(op, prev)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Line: 0, Ch: 3}, got.FromPos)

	content, err := Apply([]string{"acdef"}, got)
	require.NoError(t, err)
	assert.Equal(t, []string{"acdZef"}, content)
}

func TestTransformInsertBeforeDeleteUnchanged(t *testing.T) {
	prev := deleteOp(0, 4, 0, 5)
	op := input(0, 2, 0, 2, "Z")
	got, err := Transform(op, prev)
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestTransformInsertInsideDeletedRange(t *testing.T) {
	prev := deleteOp(0, 1, 0, 4)
	op := input(0, 2, 0, 2, "Z")
	got, err := Transform(op, prev)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Line: 0, Ch: 1}, got.FromPos)
}

func TestTransformPastMultiLineDelete(t *testing.T) {
	prev := deleteOp(0, 2, 1, 1)
	op := input(2, 3, 2, 3, "Z")
	got, err := Transform(op, prev)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Line: 1, Ch: 3}, got.FromPos)
}

func TestTransformDeletePastInsert(t *testing.T) {
	prev := input(0, 0, 0, 0, "XY")
	op := deleteOp(0, 3, 0, 4)
	got, err := Transform(op, prev)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{Line: 0, Ch: 5}, got.FromPos)
	assert.Equal(t, domain.Position{Line: 0, Ch: 4}, got.ToPos)
	assert.Equal(t, domain.OperationDelete, got.Type)
}

func TestTransformDeleteAgainstDeleteUnchanged(t *testing.T) {
	prev := deleteOp(0, 0, 0, 1)
	op := deleteOp(0, 5, 0, 6)
	got, err := Transform(op, prev)
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestTransformRejectsCursor(t *testing.T) {
	cursor := domain.Operation{Type: domain.OperationCursor}
	_, err := Transform(cursor, input(0, 0, 0, 0, "x"))
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
	_, err = Transform(input(0, 0, 0, 0, "x"), cursor)
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestAdjustSameLineAfterInsert(t *testing.T) {
	got := Adjust(domain.Position{Line: 0, Ch: 2}, domain.Position{Line: 0, Ch: 0}, "Hi, ")
	assert.Equal(t, domain.Position{Line: 0, Ch: 6}, got)
}

func TestAdjustBeforeInsertUnchanged(t *testing.T) {
	got := Adjust(domain.Position{Line: 0, Ch: 1}, domain.Position{Line: 0, Ch: 3}, "Hi")
	assert.Equal(t, domain.Position{Line: 0, Ch: 1}, got)
}

func TestAdjustOtherLineUnchanged(t *testing.T) {
	got := Adjust(domain.Position{Line: 2, Ch: 1}, domain.Position{Line: 0, Ch: 0}, "Hi")
	assert.Equal(t, domain.Position{Line: 2, Ch: 1}, got)
}

func TestAdjustCountsRunes(t *testing.T) {
	got := Adjust(domain.Position{Line: 0, Ch: 0}, domain.Position{Line: 0, Ch: 0}, "żółć")
	assert.Equal(t, domain.Position{Line: 0, Ch: 4}, got)
}
