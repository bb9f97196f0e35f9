// Package prometheus exposes engine metrics as a prometheus.Collector.
//
// Register the collector on any registry, or use [Collector.Handler] for a
// standalone /metrics endpoint. Values are read from the engine snapshot at
// scrape time; nothing is cached between scrapes.
package prometheus
