package engine

import "math"

// finiteOrZero coerces NaN and ±Inf to 0. Every numeric field crossing into
// a calculation goes through this so malformed input can never surface as a
// non-finite value in a result record.
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// quantityOf returns the unit count for an item, defaulting and flooring at 1
func quantityOf(quantity float64) float64 {
	q := finiteOrZero(quantity)
	if q < 1 {
		return 1
	}
	return q
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
