package types

import (
	"errors"
	"time"
)

// Sentinel errors shared by the loader, the builders and the summarizer.
var (
	// ErrDataUnavailable means the remote dataset could not be fetched.
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrEmptyResult means no data survived filtering, or an index was empty.
	ErrEmptyResult = errors.New("empty result")

	// ErrMissingField means a required column, variable or covariate is absent.
	ErrMissingField = errors.New("missing field")
)

// RawRecord is one line-list row exactly as read from the dataset, before
// any cleaning. Empty strings stand for missing cells.
type RawRecord struct {
	Country   string
	Onset     string
	Confirmed string
}

// Record is a cleaned line-list record. Confirmed is always after Onset.
type Record struct {
	Country   string
	Onset     time.Time
	Confirmed time.Time
}

// DelayDays returns the whole number of days between onset and confirmation.
func (r Record) DelayDays() int {
	return int(r.Confirmed.Sub(r.Onset).Hours() / 24)
}

// Distribution is a dense discrete probability distribution over delay in
// days: Distribution[d] is the probability of a delay of d days.
type Distribution []float64

// Sum returns the total probability mass.
func (d Distribution) Sum() float64 {
	var total float64
	for _, p := range d {
		total += p
	}
	return total
}

// Posterior holds posterior draws in date-major layout. For every variable,
// row i holds all (chain, draw) samples for Dates[i], ordered by chain then
// draw. Dates are strictly ascending.
type Posterior struct {
	Dates []time.Time

	Rt                   [][]float64
	Infections           [][]float64
	TestAdjustedPositive [][]float64
}

// Covariates holds the observed series the model was fit against, aligned
// by index with Dates.
type Covariates struct {
	Dates    []time.Time
	Positive []float64
	Tests    []float64
}

// SummaryRow is one date of the inference summary report.
type SummaryRow struct {
	Date time.Time

	// Point estimates and highest-density interval bounds of Rt.
	Mean   float64
	Median float64
	Lower  float64
	Upper  float64

	// Posterior means rescaled to the observed positive-count scale.
	Infections           float64
	TestAdjustedPositive float64

	// Observed positives divided by floored test volume, rescaled.
	TestAdjustedPositiveRaw float64

	Positive float64
	Tests    float64
}
