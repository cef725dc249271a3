// Package types defines the shared Go types used by both pipelines: the
// line-list records consumed by the delay estimator, the delay distribution
// it produces, and the posterior/covariate/summary types handled by the
// inference summarizer.
//
// The sentinel errors ErrDataUnavailable, ErrEmptyResult and ErrMissingField
// classify failures across packages; callers test them with errors.Is.
package types
