// Package delay builds the onset-to-confirmation delay distribution.
//
// empirical.go turns cleaned line-list records into a dense, normalized
// histogram of delays in days, left-padded with zero-probability incubation
// days. fitted.go samples a fixed lognormal CDF instead. Both return a
// types.Distribution indexed by day that sums to 1.
//
// Provider wraps the empirical builder with a cache.Store: the first Get
// downloads and builds, later calls decode the cached two-column CSV
// (day,p_delay) without touching the network. Invalidate deletes the entry.
package delay
