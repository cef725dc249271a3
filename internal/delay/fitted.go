package delay

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rtlive/rtlive/internal/config"
	"github.com/rtlive/rtlive/pkg/types"
)

// FittedParams are lognormal parameters on the log scale plus the number of
// days sampled.
type FittedParams struct {
	MeanLog float64
	SDLog   float64
	Days    int
}

// DefaultFitted is the published infection-to-positive-test fit.
var DefaultFitted = FittedParams{MeanLog: 1.68, SDLog: 0.92, Days: 70}

// FittedFrom reads the parameters from the delay config.
func FittedFrom(cfg config.Fitted) FittedParams {
	return FittedParams{MeanLog: cfg.MeanLog, SDLog: cfg.SDLog, Days: cfg.Days}
}

// Fitted returns the per-day probabilities of the lognormal delay: CDF
// differences over days 0..Days-1, with day 0 held at zero (no same-day
// confirmation) and the truncated tail renormalized away.
func Fitted(p FittedParams) types.Distribution {
	ln := distuv.LogNormal{Mu: p.MeanLog, Sigma: p.SDLog}

	dist := make(types.Distribution, p.Days)
	prev := ln.CDF(0)
	for day := 1; day < p.Days; day++ {
		cdf := ln.CDF(float64(day))
		dist[day] = cdf - prev
		prev = cdf
	}
	floats.Scale(1/floats.Sum(dist), dist)
	return dist
}
