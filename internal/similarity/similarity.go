// Package similarity is the scalar similarity kit: a handful of built-in
// [0,1] scoring functions for partial matching, plus the per-attribute
// registry an agent consults when computing a mismatch penalty.
package similarity

import (
	"fmt"
	"math"
)

// Func scores two attribute values on [0,1], where 1 means "identical for
// retrieval purposes". clamped reports whether either input was clamped
// into a bounded function's domain (the caller logs a warning when true).
type Func func(x, y any) (score float64, clamped bool, err error)

// Always1 is the trivial similarity function: every pair of values scores a
// perfect match. Registering it on an attribute effectively disables the
// mismatch penalty for that attribute while still marking it mismatchable
// (so candidates are not filtered by exact equality on it).
func Always1(x, y any) (float64, bool, error) { return 1, false, nil }

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("similarity: value %v of type %T is not numeric", v, v)
	}
}

// PositiveLinear scores the ratio of the smaller to the larger value; both
// must be strictly positive.
func PositiveLinear(x, y any) (float64, bool, error) {
	fx, err := toFloat(x)
	if err != nil {
		return 0, false, err
	}
	fy, err := toFloat(y)
	if err != nil {
		return 0, false, err
	}
	if fx <= 0 || fy <= 0 {
		return 0, false, fmt.Errorf("similarity: positive_linear requires values > 0, got %v and %v", x, y)
	}
	lo, hi := fx, fy
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo / hi, false, nil
}

// PositiveQuadratic is PositiveLinear squared, penalizing larger ratios
// more steeply.
func PositiveQuadratic(x, y any) (float64, bool, error) {
	v, clamped, err := PositiveLinear(x, y)
	if err != nil {
		return 0, clamped, err
	}
	return v * v, clamped, nil
}

func clamp(v, lo, hi float64) (float64, bool) {
	if v < lo {
		return lo, true
	}
	if v > hi {
		return hi, true
	}
	return v, false
}

// BoundedLinear builds a similarity function over a closed range [lo, hi]:
// a difference of zero scores 1, a difference of the full range scores 0,
// linearly in between. Inputs outside the range are clamped into it.
func BoundedLinear(lo, hi float64) (Func, error) {
	if lo >= hi {
		return nil, fmt.Errorf("similarity: bounded_linear requires lo < hi, got lo=%v hi=%v", lo, hi)
	}
	span := hi - lo
	return func(x, y any) (float64, bool, error) {
		fx, err := toFloat(x)
		if err != nil {
			return 0, false, err
		}
		fy, err := toFloat(y)
		if err != nil {
			return 0, false, err
		}
		var cx, cy bool
		fx, cx = clamp(fx, lo, hi)
		fy, cy = clamp(fy, lo, hi)
		return 1 - math.Abs(fx-fy)/span, cx || cy, nil
	}, nil
}

// BoundedQuadratic is BoundedLinear squared.
func BoundedQuadratic(lo, hi float64) (Func, error) {
	linear, err := BoundedLinear(lo, hi)
	if err != nil {
		return nil, err
	}
	return func(x, y any) (float64, bool, error) {
		v, clamped, err := linear(x, y)
		if err != nil {
			return 0, clamped, err
		}
		return v * v, clamped, nil
	}, nil
}

