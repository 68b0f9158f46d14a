package ibl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ibl "github.com/DDM-Lab/go-ibl"
)

// spec.md §8 scenario 5: a deferred response's Update retroactively rewrites
// the placeholder occurrence recorded at choose-time, without disturbing the
// pre-populated instance it was blended from.
func TestScenario5DelayedFeedbackRoundTrip(t *testing.T) {
	a, err := ibl.New(ibl.WithTemperature(1), ibl.WithNoise(0))
	require.NoError(t, err)
	require.NoError(t, a.Populate([]ibl.Option{"A"}, 10))
	require.NoError(t, a.Populate([]ibl.Option{"B"}, 5))

	choice, err := a.Choose("A", "B")
	require.NoError(t, err)
	assert.Equal(t, "A", choice)

	handle, err := a.Respond(nil, nil)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.False(t, handle.IsResolved())
	assert.Equal(t, 10.0, handle.Expectation())

	unresolvedOutcome, resolved := handle.Outcome()
	assert.False(t, resolved)
	assert.Equal(t, 10.0, unresolvedOutcome, "outcome should surface the placeholder expectation before Update")

	// The placeholder occurrence (outcome 10, at t=1) keeps A's blend intact
	// while the handle is outstanding.
	choice, err = a.Choose("A", "B")
	require.NoError(t, err)
	assert.Equal(t, "A", choice)
	zero := 0.0
	_, err = a.Respond(&zero, nil)
	require.NoError(t, err)

	prevExpectation, err := handle.Update(15)
	require.NoError(t, err)
	assert.Equal(t, 10.0, prevExpectation)
	assert.True(t, handle.IsResolved())
	outcome, resolved := handle.Outcome()
	assert.True(t, resolved)
	assert.Equal(t, 15.0, outcome)

	// Updating an already-resolved handle is an error.
	_, err = handle.Update(99)
	assert.ErrorIs(t, err, ibl.ErrAlreadyResolved)

	var rewrittenOutcome10, rewrittenOutcome15 bool
	for _, inst := range a.Instances() {
		if inst.Decision != "A" {
			continue
		}
		switch inst.Outcome {
		case 10:
			rewrittenOutcome10 = true
			assert.Equal(t, []int{0}, inst.Occurrences, "the original outcome-10 instance should no longer carry the placeholder occurrence at t=1")
		case 15:
			rewrittenOutcome15 = true
			assert.Equal(t, []int{1}, inst.Occurrences, "the rewritten outcome-15 instance should carry exactly the placeholder's former occurrence")
		}
	}
	assert.True(t, rewrittenOutcome10, "the original populated instance must survive the rewrite")
	assert.True(t, rewrittenOutcome15, "a new instance for the real outcome must exist after Update")
}

// Two outstanding delayed handles, resolved in reverse order, never
// cross-contaminate each other's state.
func TestDelayedFeedbackIndependentHandles(t *testing.T) {
	a, err := ibl.New(ibl.WithTemperature(1), ibl.WithNoise(0), ibl.WithDefaultUtility(5))
	require.NoError(t, err)

	_, err = a.Choose("X", "Y")
	require.NoError(t, err)
	h1, err := a.Respond(nil, nil)
	require.NoError(t, err)

	_, err = a.Choose("X", "Y")
	require.NoError(t, err)
	h2, err := a.Respond(nil, nil)
	require.NoError(t, err)

	assert.False(t, h1.IsResolved())
	assert.False(t, h2.IsResolved())

	prev2, err := h2.Update(200)
	require.NoError(t, err)
	assert.Equal(t, 5.0, prev2)
	assert.True(t, h2.IsResolved())
	assert.False(t, h1.IsResolved(), "resolving h2 must not affect h1")

	prev1, err := h1.Update(100)
	require.NoError(t, err)
	assert.Equal(t, 5.0, prev1)
	assert.True(t, h1.IsResolved())

	out1, ok1 := h1.Outcome()
	require.True(t, ok1)
	assert.Equal(t, 100.0, out1)

	out2, ok2 := h2.Outcome()
	require.True(t, ok2)
	assert.Equal(t, 200.0, out2)
}
