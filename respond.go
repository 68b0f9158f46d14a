package ibl

import "fmt"

// Respond closes the pending slot opened by the most recent Choose call.
//
// If outcome is non-nil, the instance is reinforced immediately with that
// outcome and Respond returns (nil, nil). If outcome is nil, feedback is
// deferred: Respond detaches a DelayedResponse handle from the pending
// slot and returns it, leaving the agent free to make further Choose calls
// while the handle remains outstanding (spec.md §4.5).
//
// newDecision, if non-nil, overrides the decision identity recorded for
// this trial (spec.md §6's "respond(outcome?, new_decision?)"): when the
// agent's schema is empty the override also replaces the option itself
// (decision and option are the same value in that mode); when the schema
// is non-empty it replaces only the display tag; the attributes used for
// matching are always the ones Choose evaluated and never change.
func (a *Agent) Respond(outcome *float64, newDecision Option) (*DelayedResponse, error) {
	if a.pending == nil {
		return nil, ErrNoPendingResponse
	}
	p := a.pending
	a.pending = nil

	attrs, decision := p.attrs, p.decision
	if newDecision != nil {
		decision = newDecision
		if len(a.schema) == 0 {
			attrs = map[string]any{reservedDecisionAttr: newDecision}
		}
	}

	if outcome != nil {
		a.store.Upsert(attrs, decision, *outcome, p.time)
		return nil, nil
	}

	// A placeholder occurrence stands in for the real outcome until Update
	// resolves it, so the instance participates in activation in the
	// meantime (spec.md §9's "remove-then-upsert" retroactive edit).
	placeholder := a.store.Upsert(attrs, decision, p.expectation, p.time)
	ds := &delayedState{
		cycleID:     p.cycleID,
		attrs:       attrs,
		decision:    decision,
		time:        p.time,
		expectation: p.expectation,
		outcome:     p.expectation,
		placeholder: placeholder,
	}
	a.openDelayed[p.cycleID] = ds
	return &DelayedResponse{agent: a, id: p.cycleID}, nil
}

// Populate inserts a reinforced instance for each of options, with the
// given outcome, at the current time (spec.md §6's "populate", resolving
// §9's Open Question as options-then-value).
func (a *Agent) Populate(options []Option, outcome float64) error {
	return a.populateAt(a.now, outcome, options)
}

// PopulateAt is Populate with an explicit occurrence time, for seeding
// history (spec.md §6's "populate_at"). t must not be in the future.
func (a *Agent) PopulateAt(options []Option, outcome float64, t int) error {
	return a.populateAt(t, outcome, options)
}

func (a *Agent) populateAt(t int, outcome float64, options []Option) error {
	for _, opt := range options {
		attrs, decision, err := a.normalizeOption(opt)
		if err != nil {
			return err
		}
		if _, err := a.store.Populate(attrs, decision, outcome, t, a.now, true); err != nil {
			return fmt.Errorf("ibl: populate %v: %w", opt, err)
		}
	}
	return nil
}
