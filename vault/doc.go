// Package vault persists the session's token triple and cached profile in
// exactly one of two storage scopes.
//
// # Components
//
//   - [Scope]: key/value backend. [MemoryScope] is the ephemeral scope;
//     [FileScope] and [RedisScope] are persistent.
//   - [Vault]: the single writer over a persistent and an ephemeral scope.
//
// # Consistency
//
// Save writes the new scope first and clears the other scope afterwards, so
// an interruption leaves at worst a duplicate triple, never a missing or
// half-written one. Load resolves such a duplicate by preferring the triple
// that expires later.
package vault
