package summary

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/rtlive/rtlive/pkg/types"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

func day(n int) time.Time {
	return time.Date(2020, time.March, n, 0, 0, 0, 0, time.UTC)
}

// twoDays returns a posterior whose infections and test-adjusted-positive
// means are 5 and 10 on consecutive days, with positives 10 and 20 over 100
// tests each.
func twoDays() (types.Posterior, types.Covariates) {
	post := types.Posterior{
		Dates:                []time.Time{day(1), day(2)},
		Rt:                   [][]float64{{0.8, 1.0, 1.2, 1.4}, {1, 2, 3, 4}},
		Infections:           [][]float64{{4, 6, 4, 6}, {10, 10, 10, 10}},
		TestAdjustedPositive: [][]float64{{5, 5, 5, 5}, {9, 11, 9, 11}},
	}
	cov := types.Covariates{
		Dates:    []time.Time{day(1), day(2)},
		Positive: []float64{10, 20},
		Tests:    []float64{100, 100},
	}
	return post, cov
}

func TestSummarizeRescales(t *testing.T) {
	post, cov := twoDays()
	rows, err := Summarize(post, cov, DefaultOptions())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	// mean(positive)/mean([5, 10]) = 15/7.5 = 2
	want := []float64{10, 20}
	for i, r := range rows {
		if !almostEqual(r.Infections, want[i], 1e-9) {
			t.Errorf("row %d Infections = %v, want %v", i, r.Infections, want[i])
		}
		if !almostEqual(r.TestAdjustedPositive, want[i], 1e-9) {
			t.Errorf("row %d TestAdjustedPositive = %v, want %v", i, r.TestAdjustedPositive, want[i])
		}
		// positivity [0.1, 0.2] rescaled by 15/0.15
		if !almostEqual(r.TestAdjustedPositiveRaw, want[i], 1e-9) {
			t.Errorf("row %d TestAdjustedPositiveRaw = %v, want %v", i, r.TestAdjustedPositiveRaw, want[i])
		}
		if r.Positive != cov.Positive[i] || r.Tests != cov.Tests[i] {
			t.Errorf("row %d observed = (%v, %v), want (%v, %v)", i, r.Positive, r.Tests, cov.Positive[i], cov.Tests[i])
		}
	}
}

func TestSummarizeRtStatistics(t *testing.T) {
	post, cov := twoDays()
	rows, err := Summarize(post, cov, DefaultOptions())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	r := rows[1]
	if !r.Date.Equal(day(2)) {
		t.Errorf("Date = %v, want %v", r.Date, day(2))
	}
	if r.Mean != 2.5 {
		t.Errorf("Mean = %v, want 2.5", r.Mean)
	}
	if r.Median != 2.5 {
		t.Errorf("Median = %v, want 2.5 (midpoint of central pair)", r.Median)
	}
	if r.Lower != 1 || r.Upper != 4 {
		t.Errorf("HDI = [%v, %v], want [1, 4]", r.Lower, r.Upper)
	}
}

func TestSummarizeTestsFloor(t *testing.T) {
	post, cov := twoDays()
	cov.Tests = []float64{100, 1}
	rows, err := Summarize(post, cov, Options{HDIMass: 0.95, TestsFloorFraction: 0.1})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	// positivity [10/100, 20/max(1, 10)] = [0.1, 2], mean 1.05, factor 15/1.05
	factor := 15 / 1.05
	if !almostEqual(rows[0].TestAdjustedPositiveRaw, 0.1*factor, 1e-9) {
		t.Errorf("row 0 raw = %v, want %v", rows[0].TestAdjustedPositiveRaw, 0.1*factor)
	}
	if !almostEqual(rows[1].TestAdjustedPositiveRaw, 2*factor, 1e-9) {
		t.Errorf("row 1 raw = %v, want %v", rows[1].TestAdjustedPositiveRaw, 2*factor)
	}
}

func TestSummarizeAlignsCovariates(t *testing.T) {
	post, _ := twoDays()
	cov := types.Covariates{
		Dates:    []time.Time{day(2), day(3), day(1)},
		Positive: []float64{20, 999, 10},
		Tests:    []float64{100, 100, 100},
	}
	rows, err := Summarize(post, cov, DefaultOptions())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	got := []float64{rows[0].Positive, rows[1].Positive}
	if diff := cmp.Diff([]float64{10, 20}, got); diff != "" {
		t.Errorf("positive mismatch (-want +got):\n%s", diff)
	}
	if !almostEqual(rows[0].Infections, 10, 1e-9) {
		t.Errorf("Infections = %v, want 10 (date outside posterior ignored)", rows[0].Infections)
	}
}

func TestSummarizeZeroSeries(t *testing.T) {
	post, cov := twoDays()
	post.Infections = [][]float64{{0, 0}, {0, 0}}
	rows, err := Summarize(post, cov, DefaultOptions())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	for i, r := range rows {
		if r.Infections != 0 {
			t.Errorf("row %d Infections = %v, want 0", i, r.Infections)
		}
	}
}

func TestSummarizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Posterior, *types.Covariates)
		want   error
	}{
		{"no dates", func(p *types.Posterior, c *types.Covariates) {
			*p = types.Posterior{}
		}, types.ErrEmptyResult},
		{"missing r_t", func(p *types.Posterior, c *types.Covariates) {
			p.Rt = nil
		}, types.ErrMissingField},
		{"short infections", func(p *types.Posterior, c *types.Covariates) {
			p.Infections = p.Infections[:1]
		}, types.ErrMissingField},
		{"empty samples", func(p *types.Posterior, c *types.Covariates) {
			p.TestAdjustedPositive[1] = nil
		}, types.ErrMissingField},
		{"missing tests", func(p *types.Posterior, c *types.Covariates) {
			c.Tests = nil
		}, types.ErrMissingField},
		{"missing positive", func(p *types.Posterior, c *types.Covariates) {
			c.Positive = c.Positive[:1]
		}, types.ErrMissingField},
		{"no covariates", func(p *types.Posterior, c *types.Covariates) {
			*c = types.Covariates{}
		}, types.ErrMissingField},
		{"date without covariates", func(p *types.Posterior, c *types.Covariates) {
			c.Dates = []time.Time{day(1), day(5)}
		}, types.ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post, cov := twoDays()
			tt.mutate(&post, &cov)
			_, err := Summarize(post, cov, DefaultOptions())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHDI(t *testing.T) {
	tests := []struct {
		name         string
		samples      []float64
		mass         float64
		lower, upper float64
	}{
		{"uniform grid", []float64{10, 3, 7, 1, 5, 9, 2, 8, 4, 6}, 0.8, 1, 9},
		{"skewed", []float64{0, 0.1, 0.2, 0.3, 0.4, 10}, 0.6, 0, 0.3},
		{"outlier low", []float64{-50, 1, 1.1, 1.2, 1.3}, 0.75, 1, 1.3},
		{"full mass", []float64{3, 1, 2}, 1, 1, 3},
		{"single", []float64{2.5}, 0.95, 2.5, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := HDI(tt.samples, tt.mass)
			if lo != tt.lower || hi != tt.upper {
				t.Errorf("HDI = [%v, %v], want [%v, %v]", lo, hi, tt.lower, tt.upper)
			}
		})
	}
}

func TestHDIEmpty(t *testing.T) {
	lo, hi := HDI(nil, 0.95)
	if !math.IsNaN(lo) || !math.IsNaN(hi) {
		t.Errorf("HDI(nil) = [%v, %v], want NaN bounds", lo, hi)
	}
}

func TestHDICoverage(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 7, 100, 1000} {
		samples := make([]float64, n)
		for i := range samples {
			samples[i] = math.Exp(rng.NormFloat64())
		}
		orig := append([]float64(nil), samples...)
		for _, mass := range []float64{0.5, 0.9, 0.95} {
			lo, hi := HDI(samples, mass)
			if lo > hi {
				t.Fatalf("n=%d mass=%v: lower %v > upper %v", n, mass, lo, hi)
			}
			inside := 0
			for _, s := range samples {
				if s >= lo && s <= hi {
					inside++
				}
			}
			if float64(inside) < mass*float64(n) {
				t.Errorf("n=%d mass=%v: interval holds %d samples, want >= %v", n, mass, inside, mass*float64(n))
			}
		}
		if diff := cmp.Diff(orig, samples); diff != "" {
			t.Errorf("n=%d: samples modified (-want +got):\n%s", n, diff)
		}
	}
}

func TestColumns(t *testing.T) {
	tests := []struct {
		mass         float64
		lower, upper string
	}{
		{0.95, "lower_95", "upper_95"},
		{0.9, "lower_90", "upper_90"},
		{0.89, "lower_89", "upper_89"},
		{0.995, "lower_99.5", "upper_99.5"},
	}
	for _, tt := range tests {
		cols := Columns(tt.mass)
		if cols[3] != tt.lower || cols[4] != tt.upper {
			t.Errorf("Columns(%v) bounds = %s,%s, want %s,%s", tt.mass, cols[3], cols[4], tt.lower, tt.upper)
		}
	}
}

func sampleRows() []types.SummaryRow {
	return []types.SummaryRow{
		{Date: day(1), Mean: 1.1, Median: 1, Lower: 0.5, Upper: 1.5, Infections: 10, TestAdjustedPositive: 11, TestAdjustedPositiveRaw: 12, Positive: 10, Tests: 100},
		{Date: day(2), Mean: math.NaN(), Median: 1, Lower: 0.5, Upper: 1.5, Infections: 20, TestAdjustedPositive: 21, TestAdjustedPositiveRaw: 22, Positive: 20, Tests: 100},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows(), 0.95); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := strings.Join([]string{
		"date,mean,median,lower_95,upper_95,infections,test_adjusted_positive,test_adjusted_positive_raw,positive,tests",
		"2020-03-01,1.1,1,0.5,1.5,10,11,12,10,100",
		"2020-03-02,,1,0.5,1.5,20,21,22,20,100",
		"",
	}, "\n")
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("WriteCSV mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRows(), 0.9); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0]["date"] != "2020-03-01" {
		t.Errorf("date = %v, want 2020-03-01", got[0]["date"])
	}
	if got[0]["lower_90"] != 0.5 {
		t.Errorf("lower_90 = %v, want 0.5", got[0]["lower_90"])
	}
	if v, ok := got[1]["mean"]; !ok || v != nil {
		t.Errorf("mean = %v (present %v), want null", v, ok)
	}
	if len(got[0]) != 10 {
		t.Errorf("row has %d keys, want 10", len(got[0]))
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil, 0.95); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if buf.String() != "[]\n" {
		t.Errorf("WriteJSON(nil) = %q, want %q", buf.String(), "[]\n")
	}
}
