// Package internaldefs holds the metric names, help strings and bucket bounds
// shared by the Prometheus and OpenTelemetry exporters, so both publish the
// same series for the same engine counters.
package internaldefs
