// Package audit implements async event dispatching for token lifecycle operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, principal, token id, IP, metadata.
//
// This package owns buffering and sink delivery. It does not decide which events
// to emit; the engine does.
package audit
