package ibl

import (
	"github.com/DDM-Lab/go-ibl/internal/activation"
	"github.com/DDM-Lab/go-ibl/internal/store"
)

// newNoiseCache returns a fresh per-cycle noise cache when fixed_noise is
// enabled, or nil otherwise.
func (a *Agent) newNoiseCache() activation.NoiseCache {
	if a.params.FixedNoise {
		return make(activation.NoiseCache)
	}
	return nil
}

func (a *Agent) activate(candidates []*store.Instance, query map[string]any, cache activation.NoiseCache) ([]activation.Activated, error) {
	return activation.Activate(candidates, query, a.now, a.params, a.similarityReg, a.rng, cache)
}

func (a *Agent) retrievalProbabilities(acts []activation.Activated, temperature float64) []float64 {
	return activation.RetrievalProbabilities(acts, temperature)
}

func (a *Agent) blendDiscrete(acts []activation.Activated, probs []float64, name string) map[any]float64 {
	return activation.BlendDiscrete(acts, probs, name)
}

func (a *Agent) argmax(dist map[any]float64) any {
	return activation.Argmax(dist, a.rng)
}
