package ibl

import "github.com/DDM-Lab/go-ibl/internal/similarity"

// SimilarityFunc scores two attribute values on [0,1], where 1 means
// "identical for retrieval purposes", for use with Agent.Similarity.
type SimilarityFunc func(x, y any) (score float64, clamped bool, err error)

// AlwaysMatchSimilarity scores every pair of values a perfect match. It
// effectively disables the mismatch penalty for an attribute while still
// marking it mismatchable, so candidates are not filtered by exact
// equality on it.
var AlwaysMatchSimilarity SimilarityFunc = SimilarityFunc(similarity.Always1)

// PositiveLinearSimilarity scores the ratio of the smaller to the larger
// of two strictly-positive values.
var PositiveLinearSimilarity SimilarityFunc = SimilarityFunc(similarity.PositiveLinear)

// PositiveQuadraticSimilarity is PositiveLinearSimilarity squared.
var PositiveQuadraticSimilarity SimilarityFunc = SimilarityFunc(similarity.PositiveQuadratic)

// BoundedLinearSimilarity builds a similarity function over a closed range
// [lo, hi]: a difference of zero scores 1, a difference of the full range
// scores 0, linearly in between. Values outside the range are clamped.
func BoundedLinearSimilarity(lo, hi float64) (SimilarityFunc, error) {
	fn, err := similarity.BoundedLinear(lo, hi)
	if err != nil {
		return nil, err
	}
	return SimilarityFunc(fn), nil
}

// BoundedQuadraticSimilarity is BoundedLinearSimilarity squared.
func BoundedQuadraticSimilarity(lo, hi float64) (SimilarityFunc, error) {
	fn, err := similarity.BoundedQuadratic(lo, hi)
	if err != nil {
		return nil, err
	}
	return SimilarityFunc(fn), nil
}
