// Package linelist downloads the nCoV2019 patient line-list and reduces it to
// clean (country, onset, confirmation) records.
//
// fetch.go builds the HTTP client (timeout, optional bearer/basic auth for
// private mirrors) and streams the gzip payload. The upstream file is a
// tar.gz holding one CSV; a plain gzipped CSV is accepted too. Only the
// country, date_onset_symptoms and date_confirmation columns are kept.
//
// clean.go holds the pure filtering steps. Clean applies the literal date
// corrections, drops missing and malformed dates, parses day-month-year
// dates, keeps confirmed-after-onset records and removes excluded countries.
// Censor drops onsets at or after a cutoff to correct for right-censoring;
// CensorCutoff derives that cutoff from the latest onset.
//
// Loader.Load chains the two and returns ErrEmptyResult when nothing
// survives.
package linelist
