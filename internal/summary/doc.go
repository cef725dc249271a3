// Package summary condenses posterior draws into one report row per date.
//
// hdi.go provides the highest-density interval of a sample set using the
// sorted-window method: the narrowest run of floor(mass·n)+1 consecutive
// sorted draws.
//
// summarize.go provides Summarize, which combines Rt statistics (mean,
// median, HDI bounds) with the infection and positivity series rescaled to
// the observed positive-count scale:
//
//	factor = mean(positive) / mean(series)
//
// Adjusted positivity divides positives by test volume floored at
// TestsFloorFraction·max(tests) so that near-zero testing days do not blow
// up the ratio.
//
// write.go renders rows as CSV or JSON with interval columns named after the
// configured mass (lower_95, upper_95 at the default).
package summary
