package delay

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/rtlive/rtlive/pkg/types"
)

// Delays returns Confirmed − Onset in days for every record, keeping only
// delays of at most maxDelay days.
func Delays(records []types.Record, maxDelay int) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		if d := r.DelayDays(); d <= maxDelay {
			out = append(out, d)
		}
	}
	return out
}

// Empirical builds the normalized delay histogram over 0..max(delays), with
// zero counts for unobserved days, then shifts it right by incubationDays
// zero-probability days.
func Empirical(delays []int, incubationDays int) (types.Distribution, error) {
	if len(delays) == 0 {
		return nil, fmt.Errorf("delay: no delays to build a distribution from: %w", types.ErrEmptyResult)
	}

	longest := 0
	for _, d := range delays {
		if d < 0 {
			return nil, fmt.Errorf("delay: negative delay %d", d)
		}
		longest = max(longest, d)
	}

	dist := make(types.Distribution, incubationDays+longest+1)
	hist := dist[incubationDays:]
	for _, d := range delays {
		hist[d]++
	}
	floats.Scale(1/floats.Sum(hist), hist)
	return dist, nil
}
