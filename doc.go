// Package adsession manages the authenticated session of an advertising
// operations client: credential submission, token storage, proactive
// renewal, failed-login lockout, device-change detection and a security
// audit trail.
//
// A process builds one [Manager] through [Builder] and hands it to every
// collaborator that needs authentication state:
//
//	m, err := adsession.New().
//		WithConfig(cfg).
//		WithLogger(logger).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//
//	sess, err := m.Login(ctx, adsession.Credentials{Identifier: "ana", Password: pw}, true)
//
// # Session lifecycle
//
// A session moves SignedOut → Authenticating → Authenticated, and between
// Authenticated and Refreshing while the token is renewed. Any failed
// renewal, an expired token found by the integrity check, or Logout returns
// it to SignedOut. Renewals are never retried.
//
// # Storage
//
// The token triple lives in exactly one of two scopes: the persistent one
// when the user asked to be remembered, the ephemeral one otherwise. See
// package vault.
//
// # What this package must NOT do
//
//   - Verify token signatures. Tokens are decoded only to read their expiry.
//   - Retry refreshes. A failed refresh signs the session out.
//   - Surface audit forwarding errors. They are logged and counted.
package adsession
