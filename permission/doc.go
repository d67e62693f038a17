// Package permission resolves roles to permission sets, route-prefix
// allow-lists and hierarchy levels.
//
// Permission names are interned into a [Registry] that assigns each name a
// bit; every role is compiled into a [Mask64] so that membership checks are a
// single AND. The [Resolver] is built once and is immutable afterwards, which
// makes it safe for any number of concurrent callers.
//
// # What this package must NOT do
//
//   - Access storage or the network.
//   - Know about sessions; callers pass a role name and get an answer.
package permission
