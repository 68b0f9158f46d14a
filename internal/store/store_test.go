package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHashableRejectsSlice(t *testing.T) {
	err := ValidateHashable([]int{1, 2, 3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotHashable))
}

func TestValidateHashableAcceptsScalars(t *testing.T) {
	require.NoError(t, ValidateHashable("red"))
	require.NoError(t, ValidateHashable(5))
	require.NoError(t, ValidateHashable(5.5))
	require.NoError(t, ValidateHashable(nil))
}

func TestUpsertCreatesThenReinforces(t *testing.T) {
	s := New()
	attrs := map[string]any{"_decision": "A"}
	inst := s.Upsert(attrs, "A", 10, 0)
	require.Equal(t, []int{0}, inst.Occurrences)
	require.Equal(t, 1, s.Len())

	again := s.Upsert(attrs, "A", 10, 3)
	assert.Same(t, inst, again)
	assert.Equal(t, []int{0, 3}, inst.Occurrences)
	assert.Equal(t, 2, inst.OptK())
	assert.InDelta(t, 1.5, inst.TAvg(), 1e-12)
}

func TestUpsertIgnoresNonIncreasingTime(t *testing.T) {
	s := New()
	attrs := map[string]any{"_decision": "A"}
	inst := s.Upsert(attrs, "A", 10, 5)
	s.Upsert(attrs, "A", 10, 5)
	s.Upsert(attrs, "A", 10, 3)
	assert.Equal(t, []int{5}, inst.Occurrences)
}

func TestUpsertDistinguishesByOutcome(t *testing.T) {
	s := New()
	attrs := map[string]any{"_decision": "A"}
	s.Upsert(attrs, "A", 10, 0)
	s.Upsert(attrs, "A", 0, 1)
	assert.Equal(t, 2, s.Len())
}

func TestPopulateRejectsFutureTime(t *testing.T) {
	s := New()
	_, err := s.Populate(map[string]any{"_decision": "A"}, "A", 10, 5, 2, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFutureTime))
}

func TestPopulateRejectsConflictingIdentity(t *testing.T) {
	s := New()
	attrs := map[string]any{"_decision": "A"}
	_, err := s.Populate(attrs, "A", 10, 0, 10, true)
	require.NoError(t, err)
	_, err = s.Populate(attrs, "A", 10, 3, 10, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflictingIdentity))
}

func TestCandidatesFiltersOnExactAttrs(t *testing.T) {
	s := New()
	s.Upsert(map[string]any{"_decision": "A"}, "A", 10, 0)
	s.Upsert(map[string]any{"_decision": "B"}, "B", 5, 0)

	cands := s.Candidates(map[string]any{"_decision": "A"}, []string{"_decision"})
	require.Len(t, cands, 1)
	assert.Equal(t, "A", cands[0].Decision)
}

func TestCandidatesWithNoExactAttrsReturnsAll(t *testing.T) {
	s := New()
	s.Upsert(map[string]any{"color": "red", "size": 5}, "a", 100, 0)
	s.Upsert(map[string]any{"color": "blue", "size": 10}, "b", 110, 1)

	cands := s.Candidates(map[string]any{}, nil)
	assert.Len(t, cands, 2)
}

func TestCandidatesIntersectsMultipleExactAttrs(t *testing.T) {
	s := New()
	s.Upsert(map[string]any{"color": "red", "shape": "round"}, "a", 1, 0)
	s.Upsert(map[string]any{"color": "red", "shape": "square"}, "b", 2, 0)
	s.Upsert(map[string]any{"color": "blue", "shape": "round"}, "c", 3, 0)

	cands := s.Candidates(map[string]any{"color": "red", "shape": "round"}, []string{"color", "shape"})
	require.Len(t, cands, 1)
	assert.Equal(t, "a", cands[0].Decision)
}

func TestMoveOccurrenceRewritesIdentity(t *testing.T) {
	s := New()
	attrs := map[string]any{"_decision": "A"}
	src := s.Upsert(attrs, "A", 0, 5) // placeholder pending outcome
	s.Upsert(attrs, "A", 0, 9)        // a second, unrelated occurrence of the same pending instance

	moved, err := s.MoveOccurrence(src, 5, attrs, "A", 12)
	require.NoError(t, err)
	assert.Equal(t, 12.0, moved.Outcome)
	assert.Equal(t, []int{5}, moved.Occurrences)

	// src should have lost occurrence 5 but kept 9.
	assert.Equal(t, []int{9}, src.Occurrences)
	assert.Equal(t, 2, s.Len())
}

func TestMoveOccurrenceRemovesExhaustedSource(t *testing.T) {
	s := New()
	attrs := map[string]any{"_decision": "A"}
	src := s.Upsert(attrs, "A", 0, 5)

	_, err := s.MoveOccurrence(src, 5, attrs, "A", 12)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len()) // only the rewritten instance remains
}

func TestMoveOccurrenceErrorsOnUnknownTime(t *testing.T) {
	s := New()
	attrs := map[string]any{"_decision": "A"}
	src := s.Upsert(attrs, "A", 0, 5)

	_, err := s.MoveOccurrence(src, 99, attrs, "A", 12)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOccurrenceNotFound))
}

func TestResetClearsEverything(t *testing.T) {
	s := New()
	s.Upsert(map[string]any{"_decision": "A"}, "A", 10, 0)
	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Candidates(map[string]any{"_decision": "A"}, []string{"_decision"}))
}
