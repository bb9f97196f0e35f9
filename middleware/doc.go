// Package middleware adapts authcore.Engine to net/http.
//
// # Guards
//
//   - [Guard] requires a valid access token and rejects the request otherwise.
//   - [Optional] lets requests without an Authorization header through as
//     anonymous, but still rejects a header that is present and invalid.
//
// Both read the Authorization header with [BearerToken], call
// Engine.ValidateAccess, and store the resolved principal in the request
// context for [PrincipalFromContext].
//
// Rejections are written with [WriteError] as a JSON envelope. A store outage
// is answered with 503 so clients never mistake it for bad credentials.
//
// # Request logging
//
// [RequestLog] logs one zap entry per request with method, path, status,
// duration and client IP.
package middleware
