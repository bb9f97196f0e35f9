// Package otel binds engine metrics to an OpenTelemetry Meter.
//
// Outcome counters of one operation share an instrument and are told apart by
// an attribute, for example authcore.token.validate{outcome="revoked"}. The
// validate latency histogram, when enabled, is published as cumulative bucket
// gauges keyed by an "le" attribute plus a count gauge. A single callback
// reads the engine snapshot on each collection. Callers own the MeterProvider.
package otel
