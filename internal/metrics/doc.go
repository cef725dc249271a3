// Package metrics records per-run gauges and writes them as a Prometheus
// textfile for the node_exporter textfile collector.
//
// Every series carries a pipeline label ("delay" or "summarize"). Both
// pipelines may share one textfile: Write parses the existing file and keeps
// the series of other pipelines, replacing only its own.
package metrics
