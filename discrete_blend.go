package ibl

import "fmt"

// DiscreteBlend computes the retrieval-probability distribution over every
// distinct value attribute has taken in the instances matching context,
// and returns the most likely value alongside the full distribution
// (spec.md §6's "discrete_blend", validated against scenario 6 of §8).
//
// context need not cover every schema attribute — it is matched the same
// way Choose matches an option's attributes, including partial matching
// for any attribute with a registered similarity function.
func (a *Agent) DiscreteBlend(attribute string, context map[string]any) (value any, distribution map[any]float64, err error) {
	if len(a.schema) == 0 {
		if attribute != "" && attribute != reservedDecisionAttr {
			return nil, nil, newValidationError("attribute", fmt.Errorf("%w: agent has no attribute schema", ErrInvalidAttribute))
		}
		attribute = reservedDecisionAttr
	} else {
		found := false
		for _, name := range a.schema {
			if name == attribute {
				found = true
				break
			}
		}
		if !found {
			return nil, nil, newValidationError("attribute", fmt.Errorf("%w: %q is not in the attribute schema", ErrInvalidAttribute, attribute))
		}
	}

	temperature, ok := a.params.EffectiveTemperature()
	if !ok {
		return nil, nil, newValidationError("temperature", ErrNoiseOrTemperatureRequired)
	}

	var exact []string
	for _, name := range a.exactAttrs() {
		if name == attribute {
			continue
		}
		if _, present := context[name]; present {
			exact = append(exact, name)
		}
	}
	candidates := a.store.Candidates(context, exact)
	if len(candidates) == 0 {
		return nil, map[any]float64{}, nil
	}

	cache := a.newNoiseCache()
	acts, err := a.activate(candidates, context, cache)
	if err != nil {
		return nil, nil, err
	}
	probs := a.retrievalProbabilities(acts, temperature)
	dist := a.blendDiscrete(acts, probs, attribute)
	return a.argmax(dist), dist, nil
}
