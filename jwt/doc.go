// Package jwt is the token codec: it signs claims into compact JWTs and verifies them,
// reporting expired tokens separately from malformed or tampered ones.
//
// The codec never touches a store. Revocation and principal checks live in the engine.
package jwt
