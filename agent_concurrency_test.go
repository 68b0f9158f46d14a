package ibl_test

import (
	"math/rand"
	"testing"

	"golang.org/x/sync/errgroup"

	ibl "github.com/DDM-Lab/go-ibl"
)

// spec.md §5: Agent is not safe for concurrent mutation of a single
// instance, but independent agents may be driven in parallel. Each
// goroutine here owns one agent end to end and never touches another's.
func TestIndependentAgentsRunConcurrently(t *testing.T) {
	const agents = 8
	const rounds = 50

	g := new(errgroup.Group)
	for i := 0; i < agents; i++ {
		seed := int64(i + 1)
		g.Go(func() error {
			a, err := ibl.New(
				ibl.WithDefaultUtility(10),
				ibl.WithRandSource(rand.New(rand.NewSource(seed))),
			)
			if err != nil {
				return err
			}
			for round := 0; round < rounds; round++ {
				before := a.Time()
				choice, err := a.Choose("x", "y")
				if err != nil {
					return err
				}
				if a.Time() != before+1 {
					t.Errorf("agent seed %d: time advanced to %d after round %d, want %d", seed, a.Time(), round, before+1)
				}
				outcome := float64(round)
				if choice == "y" {
					outcome = -outcome
				}
				if _, err := a.Respond(&outcome, nil); err != nil {
					return err
				}
			}
			if a.Time() != rounds {
				t.Errorf("agent seed %d: final time %d, want %d", seed, a.Time(), rounds)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
