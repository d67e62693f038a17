// Package middleware turns session manager state into HTTP route guards.
//
// # Guards
//
//   - [Guard.Check] decides allow, unauthenticated or forbidden for a path
//     and an any-of permission list.
//   - [Guard.Middleware] enforces the decision with a 302 redirect to the
//     login path (carrying the return URL) or the forbidden path, and puts
//     the admitted session in the request context.
//
// # What this package must NOT do
//
//   - Authenticate, refresh or sign out. The guard only reads state.
//   - Decode tokens.
package middleware
