// Package posterior reads model output and observed covariates from tidy CSV.
//
// Samples are in long format, one row per (chain, draw, date):
//
//	chain,draw,date,r_t,infections,test_adjusted_positive
//
// and are regrouped into the date-major types.Posterior layout, dates
// ascending, samples ordered by chain then draw. Covariates are one row per
// date:
//
//	date,positive,tests
//
// Column order is free and extra columns are ignored. A missing column
// yields types.ErrMissingField; a file without data rows yields
// types.ErrEmptyResult.
package posterior
