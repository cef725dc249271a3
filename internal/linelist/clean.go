package linelist

import (
	"time"

	"github.com/rtlive/rtlive/internal/config"
	"github.com/rtlive/rtlive/pkg/types"
)

// DateLayout is the day-month-year layout of both date columns.
const DateLayout = "02.01.2006"

// dateLen is the length of a single unambiguous date such as "09.03.2020".
// Anything else is a range, a partial date or a typo.
const dateLen = len(DateLayout)

// naTokens are cell values the upstream CSV uses for missing data.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// Options controls Clean.
type Options struct {
	// Corrections maps a whole date string to its replacement.
	Corrections map[string]string

	// ExcludedCountries are dropped regardless of their dates.
	ExcludedCountries []string
}

// OptionsFrom builds cleaning options from the line-list config.
func OptionsFrom(cfg config.LineList) Options {
	return Options{
		Corrections:       cfg.Corrections,
		ExcludedCountries: cfg.ExcludedCountries,
	}
}

// Clean turns raw rows into records, dropping every row that is missing a
// field, carries a malformed or unparseable date, is not confirmed strictly
// after onset, or belongs to an excluded country. Output order follows input
// order.
func Clean(rows []types.RawRecord, opts Options) []types.Record {
	excluded := make(map[string]struct{}, len(opts.ExcludedCountries))
	for _, c := range opts.ExcludedCountries {
		excluded[c] = struct{}{}
	}

	out := make([]types.Record, 0, len(rows))
	for _, row := range rows {
		onsetStr := correct(row.Onset, opts.Corrections)
		confirmedStr := correct(row.Confirmed, opts.Corrections)

		if missing(row.Country) || missing(onsetStr) || missing(confirmedStr) {
			continue
		}
		if len(onsetStr) != dateLen || len(confirmedStr) != dateLen {
			continue
		}
		onset, err := time.Parse(DateLayout, onsetStr)
		if err != nil {
			continue
		}
		confirmed, err := time.Parse(DateLayout, confirmedStr)
		if err != nil {
			continue
		}
		if !confirmed.After(onset) {
			continue
		}
		if _, ok := excluded[row.Country]; ok {
			continue
		}
		out = append(out, types.Record{Country: row.Country, Onset: onset, Confirmed: confirmed})
	}
	return out
}

// CensorCutoff returns the latest onset minus window. It returns the zero
// time when records is empty.
func CensorCutoff(records []types.Record, window time.Duration) time.Time {
	var latest time.Time
	for _, r := range records {
		if r.Onset.After(latest) {
			latest = r.Onset
		}
	}
	if latest.IsZero() {
		return time.Time{}
	}
	return latest.Add(-window)
}

// Censor keeps only records whose onset is strictly before cutoff.
func Censor(records []types.Record, cutoff time.Time) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if r.Onset.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func correct(s string, corrections map[string]string) string {
	if fixed, ok := corrections[s]; ok {
		return fixed
	}
	return s
}

func missing(s string) bool {
	_, ok := naTokens[s]
	return ok
}
