package ibl

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/DDM-Lab/go-ibl/internal/store"
)

// delayedState is the shared, mutable record a DelayedResponse handle
// points at. It is detached from the agent's single pending slot as soon
// as Respond(nil, ...) creates it, so further Choose/Respond cycles never
// disturb it (spec.md §4.5).
type delayedState struct {
	cycleID     uuid.UUID
	attrs       map[string]any
	decision    any
	time        int
	expectation float64
	outcome     float64
	resolved    bool
	placeholder *store.Instance
}

// DelayedResponse is a handle to feedback deferred by Respond(nil, ...).
// Multiple handles may be outstanding at once, independently of each
// other and of the agent's current pending slot.
type DelayedResponse struct {
	agent *Agent
	id    uuid.UUID
}

func (d *DelayedResponse) state() *delayedState {
	return d.agent.openDelayed[d.id]
}

// IsResolved reports whether Update has been called on this handle.
func (d *DelayedResponse) IsResolved() bool {
	s := d.state()
	return s == nil || s.resolved
}

// Expectation returns the blended value the agent predicted when Choose
// selected this option, available whether or not the handle is resolved.
func (d *DelayedResponse) Expectation() float64 {
	s := d.state()
	if s == nil {
		return 0
	}
	return s.expectation
}

// Outcome returns the handle's current stored outcome — the placeholder
// expectation before Update resolves it, the real outcome after (spec.md
// §4.5) — and whether it has been resolved yet.
func (d *DelayedResponse) Outcome() (float64, bool) {
	s := d.state()
	if s == nil {
		return 0, false
	}
	return s.outcome, s.resolved
}

// Update supplies the real outcome for a deferred trial, reinforcing the
// store at the time the original choice was made and returning the
// expectation the agent had predicted at that time. Calling Update twice
// on the same handle is an error.
func (d *DelayedResponse) Update(realOutcome float64) (previousExpectation float64, err error) {
	s := d.state()
	if s == nil || s.resolved {
		return 0, ErrAlreadyResolved
	}
	previousExpectation = s.expectation
	s.outcome = realOutcome
	s.resolved = true
	if _, err := d.agent.store.MoveOccurrence(s.placeholder, s.time, s.attrs, s.decision, realOutcome); err != nil {
		return 0, fmt.Errorf("ibl: delayed response update: %w", err)
	}
	return previousExpectation, nil
}
