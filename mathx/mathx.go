// Package mathx holds small numeric helpers for header and report values
package mathx

import "math"

// Round rounds x to the nearest multiple of unit (0.1 for tenth, 1e-6 for
// micro, and so on).  Halves round away from zero.  A non-positive unit
// returns x unchanged.
func Round(x, unit float64) float64 {
	if unit <= 0 {
		return x
	}
	return math.Round(x/unit) * unit
}
