package summary

import (
	"math"
	"slices"
)

// HDI returns the bounds of the narrowest interval containing at least mass
// of samples. It returns NaN bounds for an empty sample set. samples is not
// modified.
func HDI(samples []float64, mass float64) (lower, upper float64) {
	n := len(samples)
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	inc := int(math.Floor(mass * float64(n)))
	if inc >= n {
		inc = n - 1
	}
	if inc < 0 {
		inc = 0
	}

	best := 0
	width := math.Inf(1)
	for i := 0; i+inc < n; i++ {
		if w := sorted[i+inc] - sorted[i]; w < width {
			width = w
			best = i
		}
	}
	return sorted[best], sorted[best+inc]
}
