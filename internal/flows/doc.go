// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunIssue, RunValidate, RunRefresh, RunRevoke, RunLogin)
// accepts a typed dependency struct and returns a result carrying a
// [FailureKind] instead of a root error, so the root package owns the
// public error taxonomy.
//
// Flows hold no state between calls, never import the root package, and perform
// I/O only through their dependency functions.
package flows
