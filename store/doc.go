// Package store holds the two keyed caches the engine consults on every request:
// the revocation store (jti -> revoked, self-expiring) and the existence cache
// (principal id -> "recently seen", short fixed TTL).
//
// # Backends
//
//   - [RedisRevocationStore], [RedisExistenceCache]: go-redis, any UniversalClient.
//   - [RueidisRevocationStore]: the same key layout over a rueidis client.
//   - [MemoryRevocationStore]: per-process map. Only correct for single-instance deployments.
//   - [MemoryExistenceCache]: ristretto. Entries may be dropped under pressure, which is
//     fine for a hint cache.
//
// Every backend failure is reported as an error wrapping [ErrUnavailable] so callers can
// tell an outage apart from a negative answer.
package store
