package ibl_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ibl "github.com/DDM-Lab/go-ibl"
)

func f64(v float64) *float64 { return &v }

// spec.md §8 scenario 1: with noise=0 the first choice is unambiguous (A's
// lone instance outcomes 10 against B's 5); reinforcing the chosen option
// with a much lower real outcome flips the second choice to B, because the
// reinforcement lands at the exact tick the second choose evaluates against
// (the "recency spike" a just-closed response always carries into the next
// decision).
func TestScenario1BasicChooseRespond(t *testing.T) {
	a, err := ibl.New(ibl.WithTemperature(1), ibl.WithNoise(0))
	require.NoError(t, err)
	require.NoError(t, a.Populate([]ibl.Option{"A"}, 10))
	require.NoError(t, a.Populate([]ibl.Option{"B"}, 5))

	choice, err := a.Choose("A", "B")
	require.NoError(t, err)
	assert.Equal(t, "A", choice)

	_, err = a.Respond(f64(0), nil)
	require.NoError(t, err)

	choice, err = a.Choose("A", "B")
	require.NoError(t, err)
	assert.Equal(t, "B", choice)
}

// spec.md §8 scenario 3: with a scalar default utility and no prior
// instances, an agent always prefers an untried option over one it has
// just been punished for; across enough rounds of alternating extreme
// negative rewards this forces the chosen letter to vary.
func TestScenario3ChoiceVariesUnderAlternatingPunishment(t *testing.T) {
	a, err := ibl.New(ibl.WithDefaultUtility(10), ibl.WithRandSource(rand.New(rand.NewSource(0))))
	require.NoError(t, err)

	seen := map[any]bool{}
	for i := 0; i < 20; i++ {
		choice, err := a.Choose("a", "b", "c", "d")
		require.NoError(t, err)
		seen[choice] = true

		outcome := 5.0
		if i > 0 {
			outcome = -math.Pow(10, float64(i))
		}
		_, err = a.Respond(&outcome, nil)
		require.NoError(t, err)
	}
	assert.Greater(t, len(seen), 1, "chosen letter should vary across rounds of alternating punishment")
}

// spec.md §8 scenario 4's pattern: partial matching under a mismatch
// penalty prefers the option whose query is closer to a highly-reinforced
// instance; reinforcing a closer candidate with a poor real outcome flips
// the preference back, once enough time has passed for the reinforcement's
// recency spike to fade.
func TestPartialMatchingReinforcementFlipsChoice(t *testing.T) {
	a, err := ibl.New(
		ibl.WithAttributes("size"),
		ibl.WithMismatchPenalty(2),
		ibl.WithTemperature(1),
		ibl.WithNoise(0),
	)
	require.NoError(t, err)
	require.NoError(t, a.Similarity("size", ibl.PositiveLinearSimilarity, 1))

	require.NoError(t, a.Populate([]ibl.Option{[]any{5}}, 100))
	require.NoError(t, a.Populate([]ibl.Option{[]any{10}}, 110))

	optionNear := []any{5}
	optionFar := []any{20}

	choice, err := a.Choose(optionNear, optionFar)
	require.NoError(t, err)
	assert.Equal(t, optionFar, choice, "closer match to the 110-outcome instance should win first")

	_, err = a.Respond(f64(10), nil)
	require.NoError(t, err)

	// Let the just-created instance's recency spike fade before asking again.
	_, err = a.Advance(1, -1)
	require.NoError(t, err)

	choice, err = a.Choose(optionNear, optionFar)
	require.NoError(t, err)
	assert.Equal(t, optionNear, choice, "the poor reinforcement should flip preference back toward the near option")
}

// spec.md §8 property: options auto-populated by a scalar default utility
// with no prior instances are always exactly tied, so repeated choices
// across a large N should converge to uniform within 10%.
func TestUniformConvergenceUnderTiedDefaultUtility(t *testing.T) {
	a, err := ibl.New(ibl.WithDefaultUtility(10), ibl.WithRandSource(rand.New(rand.NewSource(1))))
	require.NoError(t, err)

	const n = 5000
	letters := []string{"a", "b", "c", "d"}
	counts := make(map[string]int, len(letters))
	for i := 0; i < n; i++ {
		choice, err := a.Choose("a", "b", "c", "d")
		require.NoError(t, err)
		counts[choice.(string)]++
	}

	expected := float64(n) / float64(len(letters))
	for _, letter := range letters {
		got := float64(counts[letter])
		assert.InDelta(t, expected, got, expected*0.10, "selection frequency for %q should be within 10%% of uniform", letter)
	}
}

// spec.md §8 scenario 6 (tied case): with identical utilities for two
// values of an attribute, discrete_blend's distribution is 0.5/0.5 and its
// argmax is one of the tied values. Registering a similarity function on
// "a" (without a mismatch penalty) takes it out of exact-match filtering
// without penalizing either candidate, so both remain in the candidate set
// for "b" with equal activation.
func TestDiscreteBlendTiedDistribution(t *testing.T) {
	a, err := ibl.New(
		ibl.WithAttributes("a", "b"),
		ibl.WithTemperature(1),
		ibl.WithNoise(0),
	)
	require.NoError(t, err)
	require.NoError(t, a.Similarity("a", ibl.AlwaysMatchSimilarity, 1))
	require.NoError(t, a.Populate([]ibl.Option{map[string]any{"a": 1, "b": 1}}, 10))
	require.NoError(t, a.Populate([]ibl.Option{map[string]any{"a": 2, "b": 2}}, 10))

	value, dist, err := a.DiscreteBlend("b", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, dist[1], 1e-9)
	assert.InDelta(t, 0.5, dist[2], 1e-9)
	assert.Contains(t, []any{1, 2}, value)
}

// Reset invariants from spec.md §8: after Reset, time is zero and the
// store is empty, unless preserve_prepopulated retains zero-time populated
// instances.
func TestResetInvariants(t *testing.T) {
	a, err := ibl.New(ibl.WithDefaultUtility(10))
	require.NoError(t, err)
	require.NoError(t, a.Populate([]ibl.Option{"A"}, 10))
	_, err = a.Choose("A", "B")
	require.NoError(t, err)
	outcome := 1.0
	_, err = a.Respond(&outcome, nil)
	require.NoError(t, err)

	a.Reset(false)
	assert.Equal(t, 0, a.Time())
	assert.Empty(t, a.Instances())

	require.NoError(t, a.Populate([]ibl.Option{"A"}, 10))
	a.Reset(true)
	assert.Equal(t, 0, a.Time())
	require.Len(t, a.Instances(), 1)
	assert.Equal(t, []int{0}, a.Instances()[0].Occurrences)
}

// Every choose/respond pair without an explicit Advance moves time forward
// by exactly one (spec.md §8).
func TestTimeAdvancesByOnePerChooseRespond(t *testing.T) {
	a, err := ibl.New(ibl.WithDefaultUtility(10))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		before := a.Time()
		_, err := a.Choose("a", "b")
		require.NoError(t, err)
		assert.Equal(t, before+1, a.Time())
		outcome := 1.0
		_, err = a.Respond(&outcome, nil)
		require.NoError(t, err)
	}
}
