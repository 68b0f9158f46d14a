package ibl

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/DDM-Lab/go-ibl/internal/activation"
	"github.com/DDM-Lab/go-ibl/internal/diagnostics"
)

// evaluatedOption is one option's full blend computation for a single
// Choose call, kept around long enough to build the pending slot, the
// trace table, and the details record.
type evaluatedOption struct {
	opt         Option
	attrs       map[string]any
	decision    any
	blended     float64
	acts        []activation.Activated
	probs       []float64
	usedDefault bool
}

// Choose evaluates every option (or, if none are given, the options
// presented by the previous Choose call — spec.md §6) and returns the one
// with the highest blended value, breaking ties via the agent's random
// source. It advances the agent's time by one and opens a pending slot
// that the next Respond call closes.
func (a *Agent) Choose(options ...Option) (Option, error) {
	start := time.Now()
	ctx, span := a.tracer.Start(context.Background(), "ibl.choose")
	defer span.End()

	opts := options
	if len(opts) == 0 {
		opts = a.lastOptions
	}
	if len(opts) == 0 {
		return nil, ErrNoOptions
	}

	temperature, ok := a.params.EffectiveTemperature()
	if !ok {
		return nil, newValidationError("temperature", ErrNoiseOrTemperatureRequired)
	}

	var cache activation.NoiseCache
	if a.params.FixedNoise {
		cache = make(activation.NoiseCache)
	}

	evals := make([]evaluatedOption, 0, len(opts))
	seen := make(map[string]bool, len(opts))
	for _, opt := range opts {
		attrs, decision, err := a.normalizeOption(opt)
		if err != nil {
			return nil, err
		}
		dedupeKey := fmt.Sprintf("%#v", attrs)
		if seen[dedupeKey] {
			return nil, newValidationError("options", fmt.Errorf("%w: duplicate option %v", ErrInvalidOption, opt))
		}
		seen[dedupeKey] = true

		ev, err := a.evaluateOption(opt, attrs, decision, temperature, cache)
		if err != nil {
			return nil, err
		}
		a.retrievalSizeHist.Record(ctx, int64(len(ev.acts)))
		evals = append(evals, ev)
	}

	a.lastOptions = append([]Option(nil), opts...)

	dist := make(map[any]float64, len(evals))
	for i, ev := range evals {
		dist[i] = ev.blended
	}
	chosenIdx := activation.Argmax(dist, a.rng).(int)
	chosen := evals[chosenIdx]

	cycleID := uuid.New()
	// spec.md §4.4 orders these as "advance time by 1" then "record a
	// pending-response slot holding ... its time" — the slot's time is the
	// post-advance tick, not the tick the blend was computed against.
	a.now++
	a.pending = &pendingSlot{
		cycleID:     cycleID,
		attrs:       chosen.attrs,
		decision:    chosen.decision,
		time:        a.now,
		expectation: chosen.blended,
	}

	a.activationHist.Record(ctx, time.Since(start).Seconds())

	if a.trace {
		if err := diagnostics.WriteTrace(os.Stdout, buildTraceRecord(cycleID, a.pending.time, evals, chosen.opt)); err != nil {
			a.logger.Warn("ibl: failed to write trace table", "error", err)
		}
	}
	if a.detailsEnabled {
		a.detailsSink.Record(buildDetails(a.pending.time, evals, chosen.opt))
	}

	return chosen.opt, nil
}

// evaluateOption computes a single option's blended value: either from its
// retrievable candidate instances, or from the agent's default utility
// when none exist.
func (a *Agent) evaluateOption(opt Option, attrs map[string]any, decision any, temperature float64, cache activation.NoiseCache) (evaluatedOption, error) {
	candidates := a.store.Candidates(attrs, a.exactAttrs())

	if len(candidates) == 0 {
		if a.defaultUtility == nil {
			return evaluatedOption{}, newValidationError("options", fmt.Errorf("ibl: option %v has no retrievable instances and no default_utility is configured", opt))
		}
		blended := a.defaultUtility.fn(opt)
		if a.defaultUtilityPopulates {
			if _, err := a.store.Populate(attrs, decision, blended, a.now, a.now, false); err != nil {
				return evaluatedOption{}, fmt.Errorf("ibl: default utility populate: %w", err)
			}
		}
		return evaluatedOption{opt: opt, attrs: attrs, decision: decision, blended: blended, usedDefault: true}, nil
	}

	acts, err := activation.Activate(candidates, attrs, a.now, a.params, a.similarityReg, a.rng, cache)
	if err != nil {
		return evaluatedOption{}, err
	}
	for _, act := range acts {
		if act.Clamped {
			a.logger.Warn("ibl: bounded similarity input clamped into range", "option", opt)
			break
		}
	}
	probs := activation.RetrievalProbabilities(acts, temperature)
	blended := activation.BlendOutcome(acts, probs)
	return evaluatedOption{opt: opt, attrs: attrs, decision: decision, blended: blended, acts: acts, probs: probs}, nil
}

func buildTraceRecord(cycleID uuid.UUID, t int, evals []evaluatedOption, chosen Option) diagnostics.Record {
	r := diagnostics.Record{CycleID: cycleID, Time: t, Chosen: chosen}
	for _, ev := range evals {
		od := diagnostics.OptionDetail{Option: ev.opt, BlendedValue: ev.blended}
		for i, act := range ev.acts {
			od.Candidates = append(od.Candidates, diagnostics.CandidateDetail{
				Attrs:       act.Instance.Attrs,
				Decision:    act.Instance.Decision,
				Outcome:     act.Instance.Outcome,
				Base:        act.Base,
				Mismatch:    act.Mismatch,
				Noise:       act.Noise,
				Total:       act.Total,
				Probability: ev.probs[i],
				Clamped:     act.Clamped,
			})
		}
		r.Options = append(r.Options, od)
	}
	return r
}

func buildDetails(t int, evals []evaluatedOption, chosen Option) Details {
	d := Details{Time: t, Chosen: chosen}
	for _, ev := range evals {
		od := OptionDetail{Option: ev.opt, BlendedValue: ev.blended}
		for i, act := range ev.acts {
			od.Candidates = append(od.Candidates, CandidateDetail{
				Decision:    act.Instance.Decision,
				Outcome:     act.Instance.Outcome,
				Base:        act.Base,
				Mismatch:    act.Mismatch,
				Noise:       act.Noise,
				Total:       act.Total,
				Probability: ev.probs[i],
				Clamped:     act.Clamped,
			})
		}
		d.Options = append(d.Options, od)
	}
	return d
}
