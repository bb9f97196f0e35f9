// Package authcore issues, validates, refreshes and revokes signed bearer tokens
// for a multi-user service, and enforces password strength at account
// creation and update.
//
// The package is designed for concurrent server workloads: Engine methods are safe
// to call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], the
// error taxonomy and value types. Flow orchestration and audit dispatch live under
// internal/. Token encoding lives in jwt, revocation and existence caching in
// store, and password rules and hashing in password.
//
// Principals are owned by an external [UserStore]; the engine only reads them.
//
// # Failure reporting
//
// Every per-request failure is returned as an error matching one of the package
// sentinels; [KindOf] collapses it to a single [Kind] for branching. A store outage
// is always [ErrStoreUnavailable] and never an authentication failure. Invalid
// configuration is [ErrConfiguration] and is only returned from [Builder.Build].
package authcore
