package summary

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rtlive/rtlive/internal/config"
	"github.com/rtlive/rtlive/pkg/types"
)

// Options controls the summary statistics.
type Options struct {
	// HDIMass is the probability mass of the Rt credible interval, in (0, 1).
	HDIMass float64

	// TestsFloorFraction floors each day's test volume at this fraction of
	// the maximum daily test volume before computing positivity.
	TestsFloorFraction float64
}

// DefaultOptions returns the stock 95% interval and 0.1 test floor.
func DefaultOptions() Options {
	return Options{
		HDIMass:            config.DefaultHDIMass,
		TestsFloorFraction: config.DefaultTestsFloorFraction,
	}
}

// OptionsFrom builds Options from the summary config section.
func OptionsFrom(cfg config.Summary) Options {
	return Options{HDIMass: cfg.HDIMass, TestsFloorFraction: cfg.TestsFloorFraction}
}

// Summarize produces one row per posterior date, ascending.
//
// Every posterior variable must carry one sample row per date, and every
// posterior date must be present in cov. Covariate dates outside the
// posterior are ignored.
func Summarize(post types.Posterior, cov types.Covariates, opts Options) ([]types.SummaryRow, error) {
	if err := check(post, cov); err != nil {
		return nil, err
	}
	n := len(post.Dates)

	// Align covariates to posterior dates.
	index := make(map[time.Time]int, len(cov.Dates))
	for i, d := range cov.Dates {
		index[d] = i
	}
	positive := make([]float64, n)
	tests := make([]float64, n)
	for i, d := range post.Dates {
		j, ok := index[d]
		if !ok {
			return nil, fmt.Errorf("summary: no covariates for %s: %w", d.Format(time.DateOnly), types.ErrMissingField)
		}
		positive[i] = cov.Positive[j]
		tests[i] = cov.Tests[j]
	}

	infections := make([]float64, n)
	tap := make([]float64, n)
	for i := 0; i < n; i++ {
		infections[i] = stat.Mean(post.Infections[i], nil)
		tap[i] = stat.Mean(post.TestAdjustedPositive[i], nil)
	}

	floor := opts.TestsFloorFraction * floats.Max(tests)
	raw := make([]float64, n)
	for i := 0; i < n; i++ {
		raw[i] = positive[i] / math.Max(tests[i], floor)
	}

	target := stat.Mean(positive, nil)
	rescale(infections, target, "infections")
	rescale(tap, target, "test_adjusted_positive")
	rescale(raw, target, "test_adjusted_positive_raw")

	rows := make([]types.SummaryRow, n)
	for i, d := range post.Dates {
		rt := post.Rt[i]
		median, err := stats.Median(rt)
		if err != nil {
			return nil, fmt.Errorf("summary: median r_t on %s: %w", d.Format(time.DateOnly), err)
		}
		lower, upper := HDI(rt, opts.HDIMass)
		rows[i] = types.SummaryRow{
			Date:                    d,
			Mean:                    stat.Mean(rt, nil),
			Median:                  median,
			Lower:                   lower,
			Upper:                   upper,
			Infections:              infections[i],
			TestAdjustedPositive:    tap[i],
			TestAdjustedPositiveRaw: raw[i],
			Positive:                positive[i],
			Tests:                   tests[i],
		}
	}
	return rows, nil
}

// rescale multiplies series in place so that its mean equals target. A
// series with zero mean cannot be aligned and is zeroed.
func rescale(series []float64, target float64, name string) {
	m := stat.Mean(series, nil)
	if m == 0 {
		slog.Warn("summary: series mean is zero, cannot rescale", "series", name)
		floats.Scale(0, series)
		return
	}
	floats.Scale(target/m, series)
}

func check(post types.Posterior, cov types.Covariates) error {
	n := len(post.Dates)
	if n == 0 {
		return fmt.Errorf("summary: no posterior dates: %w", types.ErrEmptyResult)
	}
	vars := []struct {
		name string
		rows [][]float64
	}{
		{"r_t", post.Rt},
		{"infections", post.Infections},
		{"test_adjusted_positive", post.TestAdjustedPositive},
	}
	for _, v := range vars {
		if len(v.rows) != n {
			return fmt.Errorf("summary: %s has %d dates, want %d: %w", v.name, len(v.rows), n, types.ErrMissingField)
		}
		for i, r := range v.rows {
			if len(r) == 0 {
				return fmt.Errorf("summary: %s has no samples on %s: %w", v.name, post.Dates[i].Format(time.DateOnly), types.ErrMissingField)
			}
		}
	}
	if len(cov.Dates) == 0 {
		return fmt.Errorf("summary: no covariate dates: %w", types.ErrMissingField)
	}
	if len(cov.Positive) != len(cov.Dates) {
		return fmt.Errorf("summary: positive has %d values, want %d: %w", len(cov.Positive), len(cov.Dates), types.ErrMissingField)
	}
	if len(cov.Tests) != len(cov.Dates) {
		return fmt.Errorf("summary: tests has %d values, want %d: %w", len(cov.Tests), len(cov.Dates), types.ErrMissingField)
	}
	return nil
}
