package posterior

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rtlive/rtlive/pkg/types"
)

// DateLayout is the ISO date layout used by both input files.
const DateLayout = time.DateOnly

// Column names.
const (
	ColChain                = "chain"
	ColDraw                 = "draw"
	ColDate                 = "date"
	ColRt                   = "r_t"
	ColInfections           = "infections"
	ColTestAdjustedPositive = "test_adjusted_positive"
	ColPositive             = "positive"
	ColTests                = "tests"
)

type sample struct {
	chain, draw  int
	rt, inf, tap float64
}

// ReadSamples parses long-format posterior samples.
func ReadSamples(r io.Reader) (types.Posterior, error) {
	tbl, err := newTable(r, ColChain, ColDraw, ColDate, ColRt, ColInfections, ColTestAdjustedPositive)
	if err != nil {
		return types.Posterior{}, err
	}

	byDate := make(map[time.Time][]sample)
	seen := make(map[[2]int]map[time.Time]struct{})
	for tbl.next() {
		chain := tbl.integer(ColChain)
		draw := tbl.integer(ColDraw)
		d := tbl.date(ColDate)
		s := sample{
			chain: chain,
			draw:  draw,
			rt:    tbl.number(ColRt),
			inf:   tbl.number(ColInfections),
			tap:   tbl.number(ColTestAdjustedPositive),
		}
		if tbl.err != nil {
			break
		}
		k := [2]int{chain, draw}
		if seen[k] == nil {
			seen[k] = make(map[time.Time]struct{})
		}
		if _, dup := seen[k][d]; dup {
			return types.Posterior{}, fmt.Errorf("posterior: line %d: duplicate sample chain=%d draw=%d date=%s",
				tbl.line, chain, draw, d.Format(DateLayout))
		}
		seen[k][d] = struct{}{}
		byDate[d] = append(byDate[d], s)
	}
	if tbl.err != nil {
		return types.Posterior{}, tbl.err
	}
	if len(byDate) == 0 {
		return types.Posterior{}, fmt.Errorf("posterior: no samples: %w", types.ErrEmptyResult)
	}

	dates := sortedDates(byDate)
	post := types.Posterior{
		Dates:                dates,
		Rt:                   make([][]float64, len(dates)),
		Infections:           make([][]float64, len(dates)),
		TestAdjustedPositive: make([][]float64, len(dates)),
	}
	var first []sample
	for i, d := range dates {
		ss := byDate[d]
		slices.SortFunc(ss, func(a, b sample) int {
			if c := cmp.Compare(a.chain, b.chain); c != 0 {
				return c
			}
			return cmp.Compare(a.draw, b.draw)
		})
		if i == 0 {
			first = ss
		} else if !sameDraws(first, ss) {
			return types.Posterior{}, fmt.Errorf("posterior: date %s draws differ from %s (%d samples, want %d): %w",
				d.Format(DateLayout), dates[0].Format(DateLayout), len(ss), len(first), types.ErrMissingField)
		}
		post.Rt[i] = make([]float64, len(ss))
		post.Infections[i] = make([]float64, len(ss))
		post.TestAdjustedPositive[i] = make([]float64, len(ss))
		for j, s := range ss {
			post.Rt[i][j] = s.rt
			post.Infections[i][j] = s.inf
			post.TestAdjustedPositive[i][j] = s.tap
		}
	}
	return post, nil
}

// ReadCovariates parses one row per date of observed positives and tests.
func ReadCovariates(r io.Reader) (types.Covariates, error) {
	tbl, err := newTable(r, ColDate, ColPositive, ColTests)
	if err != nil {
		return types.Covariates{}, err
	}

	type obs struct{ positive, tests float64 }
	byDate := make(map[time.Time]obs)
	for tbl.next() {
		d := tbl.date(ColDate)
		o := obs{positive: tbl.number(ColPositive), tests: tbl.number(ColTests)}
		if tbl.err != nil {
			break
		}
		if _, dup := byDate[d]; dup {
			return types.Covariates{}, fmt.Errorf("posterior: line %d: duplicate covariate date %s", tbl.line, d.Format(DateLayout))
		}
		byDate[d] = o
	}
	if tbl.err != nil {
		return types.Covariates{}, tbl.err
	}
	if len(byDate) == 0 {
		return types.Covariates{}, fmt.Errorf("posterior: no covariates: %w", types.ErrEmptyResult)
	}

	dates := sortedDates(byDate)
	cov := types.Covariates{
		Dates:    dates,
		Positive: make([]float64, len(dates)),
		Tests:    make([]float64, len(dates)),
	}
	for i, d := range dates {
		cov.Positive[i] = byDate[d].positive
		cov.Tests[i] = byDate[d].tests
	}
	return cov, nil
}

// OpenSamples reads posterior samples from the CSV file at path.
func OpenSamples(path string) (types.Posterior, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Posterior{}, fmt.Errorf("posterior: open samples: %w", err)
	}
	defer f.Close()
	return ReadSamples(f)
}

// OpenCovariates reads covariates from the CSV file at path.
func OpenCovariates(path string) (types.Covariates, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Covariates{}, fmt.Errorf("posterior: open covariates: %w", err)
	}
	defer f.Close()
	return ReadCovariates(f)
}

// sameDraws reports whether a and b, both sorted, hold the same
// (chain, draw) pairs.
func sameDraws(a, b []sample) bool {
	return slices.EqualFunc(a, b, func(x, y sample) bool {
		return x.chain == y.chain && x.draw == y.draw
	})
}

func sortedDates[V any](m map[time.Time]V) []time.Time {
	dates := make([]time.Time, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })
	return dates
}

// table is a header-indexed CSV cursor. Field accessors record the first
// parse error in err and return zero values afterwards.
type table struct {
	cr   *csv.Reader
	cols map[string]int
	rec  []string
	line int
	err  error
}

func newTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("posterior: no header: %w", types.ErrEmptyResult)
	}
	if err != nil {
		return nil, fmt.Errorf("posterior: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("posterior: column %q: %w", name, types.ErrMissingField)
		}
	}
	return &table{cr: cr, cols: cols, line: 1}, nil
}

func (t *table) next() bool {
	if t.err != nil {
		return false
	}
	rec, err := t.cr.Read()
	if errors.Is(err, io.EOF) {
		return false
	}
	t.line++
	if err != nil {
		t.err = fmt.Errorf("posterior: line %d: %w", t.line, err)
		return false
	}
	t.rec = rec
	return true
}

func (t *table) raw(col string) string {
	i := t.cols[col]
	if i >= len(t.rec) || strings.TrimSpace(t.rec[i]) == "" {
		if t.err == nil {
			t.err = fmt.Errorf("posterior: line %d: empty %q: %w", t.line, col, types.ErrMissingField)
		}
		return ""
	}
	return strings.TrimSpace(t.rec[i])
}

func (t *table) integer(col string) int {
	s := t.raw(col)
	if t.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		t.err = fmt.Errorf("posterior: line %d: %s: %w", t.line, col, err)
	}
	return v
}

func (t *table) number(col string) float64 {
	s := t.raw(col)
	if t.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		t.err = fmt.Errorf("posterior: line %d: %s: %w", t.line, col, err)
	}
	return v
}

func (t *table) date(col string) time.Time {
	s := t.raw(col)
	if t.err != nil {
		return time.Time{}
	}
	v, err := time.Parse(DateLayout, s)
	if err != nil {
		t.err = fmt.Errorf("posterior: line %d: %s: %w", t.line, col, err)
	}
	return v
}
