package scorecard

import "math"

// ScoreMax is the top of the pillar score range.
const ScoreMax = 100.0

// Normalize min-max scales values onto [0, ScoreMax]:
//
//	score = (v - min) * 100 / (max - min)
//
// When every value is equal the result is all zeros. Non-finite inputs are
// treated as 0 before scaling.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		v = Finite(v)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	span := hi - lo
	if span == 0 || math.IsInf(span, 0) {
		return out
	}

	for i, v := range values {
		out[i] = Clamp((Finite(v) - lo) / span * ScoreMax)
	}
	return out
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Clamp bounds v to [0, ScoreMax], mapping non-finite values to 0.
func Clamp(v float64) float64 {
	v = Finite(v)
	switch {
	case v < 0:
		return 0
	case v > ScoreMax:
		return ScoreMax
	}
	return v
}
