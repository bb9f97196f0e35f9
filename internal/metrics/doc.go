// Package metrics provides lock-free counters and a latency histogram for the
// authentication engine.
//
// Counters live in cache-line-padded uint64 slots and are incremented with
// [sync/atomic.AddUint64]. The validate latency histogram uses 8 fixed buckets
// (<=5ms ... +Inf). The write path does not allocate.
//
// Export (Prometheus, OTel) lives in metrics/export and reads Snapshot values.
// This package performs no I/O and keeps no global registry.
package metrics
