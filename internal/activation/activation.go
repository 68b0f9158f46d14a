// Package activation implements the ACT-R-style declarative memory
// equations an agent blends over: base-level activation (exact and
// optimized-learning modes), the mismatch penalty, activation noise, and
// the log-domain retrieval probability and blended value they feed.
package activation

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/DDM-Lab/go-ibl/internal/similarity"
	"github.com/DDM-Lab/go-ibl/internal/store"
)

// epsilon stands in for (now - t) when an occurrence happened at the
// current instant, which would otherwise raise zero to a negative power.
const epsilon = 1e-9

// Params bundles the activation-relevant agent parameters for a single
// decision cycle.
type Params struct {
	Decay              float64
	Noise              float64 // sigma of the logistic noise distribution; 0 disables noise
	Temperature        float64 // used only if TemperatureSet
	TemperatureSet     bool
	MismatchPenalty    float64
	MismatchPenaltySet bool
	OptimizedLearning  bool
	FixedNoise         bool
}

// EffectiveTemperature resolves tau per spec: the explicit temperature if
// set, else sigma*sqrt(2). Returns false if neither is available.
func (p Params) EffectiveTemperature() (float64, bool) {
	if p.TemperatureSet {
		return p.Temperature, true
	}
	if p.Noise > 0 {
		return p.Noise * math.Sqrt2, true
	}
	return 0, false
}

// BaseLevel computes B(I), the exact-mode base-level activation of inst at
// time now. The optimized-learning mode is BaseLevelOptimized.
func BaseLevel(inst *store.Instance, now int, decay float64) float64 {
	sum := 0.0
	for _, t := range inst.Occurrences {
		diff := float64(now - t)
		if diff <= 0 {
			diff = epsilon
		}
		sum += math.Pow(diff, -decay)
	}
	if sum <= 0 {
		return math.Inf(-1)
	}
	return math.Log(sum)
}

// BaseLevelOptimized computes B(I) from the incrementally maintained
// (k, t_avg) pair, the closed-form approximation to BaseLevel valid when
// decay < 1. It is a different approximation from BaseLevel, not an
// alternate computation of the same quantity — the two are not expected to
// agree except in the limit of many regularly-spaced occurrences.
func BaseLevelOptimized(inst *store.Instance, now int, decay float64) float64 {
	k := float64(inst.OptK())
	diff := float64(now) - inst.TAvg()
	if diff <= 0 {
		diff = epsilon
	}
	return math.Log(k/(1-decay)) - decay*math.Log(diff)
}

// Mismatch computes the total mismatch-penalty contribution of inst's
// attributes against query, using reg for every attribute with a
// registered similarity function. clamped reports whether any bounded
// function clamped one of its inputs.
func Mismatch(reg *similarity.Registry, penalty float64, query, attrs map[string]any) (total float64, clamped bool, err error) {
	for _, name := range reg.Mismatchable() {
		score, weight, wasClamped, scoreErr := reg.Score(name, query[name], attrs[name])
		if scoreErr != nil {
			return 0, false, scoreErr
		}
		if wasClamped {
			clamped = true
		}
		total += penalty * weight * (score - 1)
	}
	return total, clamped, nil
}

// Activated is one candidate instance's fully-computed activation.
type Activated struct {
	Instance *store.Instance
	Base     float64
	Mismatch float64
	Noise    float64
	Total    float64
	Clamped  bool
}

// NoiseCache caches a fixed_noise draw per instance for a single decision
// cycle, so repeated activation computation (e.g. across every option a
// single Choose call evaluates) draws the same xi for an instance.
type NoiseCache map[*store.Instance]float64

// Activate computes activation for every candidate against query at time
// now, drawing noise from rng (fresh per candidate, or cached in cache if
// p.FixedNoise is set).
func Activate(candidates []*store.Instance, query map[string]any, now int, p Params, reg *similarity.Registry, rng *rand.Rand, cache NoiseCache) ([]Activated, error) {
	out := make([]Activated, 0, len(candidates))
	for _, inst := range candidates {
		var base float64
		if p.OptimizedLearning {
			base = BaseLevelOptimized(inst, now, p.Decay)
		} else {
			base = BaseLevel(inst, now, p.Decay)
		}

		var mismatch float64
		var clamped bool
		if p.MismatchPenaltySet {
			var err error
			mismatch, clamped, err = Mismatch(reg, p.MismatchPenalty, query, inst.Attrs)
			if err != nil {
				return nil, err
			}
		}

		noise := drawNoiseFor(inst, p, rng, cache)

		out = append(out, Activated{
			Instance: inst,
			Base:     base,
			Mismatch: mismatch,
			Noise:    noise,
			Total:    base + mismatch + noise,
			Clamped:  clamped,
		})
	}
	return out, nil
}

func drawNoiseFor(inst *store.Instance, p Params, rng *rand.Rand, cache NoiseCache) float64 {
	if p.Noise <= 0 {
		return 0
	}
	if p.FixedNoise {
		if v, ok := cache[inst]; ok {
			return v
		}
		v := DrawNoise(rng, p.Noise)
		if cache != nil {
			cache[inst] = v
		}
		return v
	}
	return DrawNoise(rng, p.Noise)
}

// RetrievalProbabilities computes p(I) for every activated candidate via a
// numerically-stable softmax over Total/temperature.
func RetrievalProbabilities(acts []Activated, temperature float64) []float64 {
	n := len(acts)
	if n == 0 {
		return nil
	}
	scaled := make([]float64, n)
	maxScaled := math.Inf(-1)
	for i, a := range acts {
		scaled[i] = a.Total / temperature
		if scaled[i] > maxScaled {
			maxScaled = scaled[i]
		}
	}
	exps := make([]float64, n)
	sum := 0.0
	for i, s := range scaled {
		exps[i] = math.Exp(s - maxScaled)
		sum += exps[i]
	}
	probs := make([]float64, n)
	for i, e := range exps {
		probs[i] = e / sum
	}
	return probs
}

// BlendOutcome computes the retrieval-probability-weighted expected outcome
// (the blended value) over activated candidates.
func BlendOutcome(acts []Activated, probs []float64) float64 {
	var v float64
	for i, a := range acts {
		v += probs[i] * a.Instance.Outcome
	}
	return v
}

// BlendDiscrete groups activated candidates by the value of attribute name
// and sums each group's retrieval probability, returning a normalized
// probability distribution over distinct values.
func BlendDiscrete(acts []Activated, probs []float64, name string) map[any]float64 {
	dist := make(map[any]float64)
	for i, a := range acts {
		v := a.Instance.Attrs[name]
		dist[v] += probs[i]
	}
	return dist
}

// Argmax returns the key with the highest value in dist, breaking ties by
// consulting rng (uniformly among tied keys) for reproducibility.
func Argmax(dist map[any]float64, rng *rand.Rand) any {
	type entry struct {
		key   any
		value float64
	}
	entries := make([]entry, 0, len(dist))
	for k, v := range dist {
		entries = append(entries, entry{k, v})
	}
	best := entries[0].value
	for _, e := range entries[1:] {
		if e.value > best {
			best = e.value
		}
	}
	var tied []entry
	for _, e := range entries {
		if e.value == best {
			tied = append(tied, e)
		}
	}
	if len(tied) == 1 {
		return tied[0].key
	}
	// Map iteration order is randomized per-process; sort by canonical
	// encoding so a fixed rng seed reproduces the same tie-break.
	sort.Slice(tied, func(i, j int) bool {
		return fmt.Sprintf("%#v", tied[i].key) < fmt.Sprintf("%#v", tied[j].key)
	})
	return tied[rng.Intn(len(tied))].key
}
