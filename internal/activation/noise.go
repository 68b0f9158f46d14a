package activation

import (
	"math"
	"math/rand"
)

// DrawNoise samples xi ~ logistic(0, sigma) using rng as the entropy
// source. sigma <= 0 always yields 0 without consulting rng.
//
// gonum.org/v1/gonum/stat/distuv has no Logistic distribution, so the draw
// is hand-rolled via the standard inverse-CDF transform: for u ~ Uniform(0,1),
// mu + sigma*ln(u/(1-u)) is logistic(mu, sigma)-distributed. rng.Float64()
// returns a value in [0, 1); it is clamped away from the 0 and 1 endpoints
// to keep the log argument finite.
func DrawNoise(rng *rand.Rand, sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	const eps = 1e-15
	u := rng.Float64()
	if u < eps {
		u = eps
	} else if u > 1-eps {
		u = 1 - eps
	}
	return sigma * math.Log(u/(1-u))
}
