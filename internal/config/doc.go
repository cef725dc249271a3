// Package config loads and watches the rtlive configuration file.
//
// Top-level types:
//   - Config{LineList, Delay, Summary, Cache, Metrics}: full tree parsed from YAML
//   - LineList: dataset url, timeout, auth, literal date corrections,
//     excluded countries, right-censoring window, progress bar toggle
//   - Delay: max_delay, incubation_days, cache_key, fitted lognormal params
//   - Summary: hdi_mass and the tests floor fraction
//   - Cache: driver (fs|memory|sqlite|s3), path, s3 bucket settings
//   - Metrics: optional Prometheus textfile path
//
// Load(path) reads the YAML file on top of Default() and validates ranges and
// enums. A missing file is an error; callers that run without a config file
// use Default() directly.
//
// Watch(ctx, paths, onChange) uses fsnotify to detect writes to any of the
// given files and calls onChange with the path that changed. It re-adds the
// watch after each event to survive the rename→create pattern of atomic-save
// editors.
package config
