// Package oidc provides handlers for OpenID Connect (OIDC) authentication flow.
//
// This package implements the OAuth2/OIDC authentication callback handler,
// supporting login, logout, and member provisioning from external identity
// providers such as Google, Okta, Keycloak, Azure AD, and other OIDC-compliant
// providers.
//
// The OIDC flow includes:
//   - Login initiation with CSRF protection via state tokens
//   - Authorization callback handling with ID token verification
//   - Automatic member creation/update from OIDC claims
//   - Session binding through the shared identity store
//   - Logout with provider end session support
//
// State and the member's requested destination travel in short lived
// cookies, so the flow needs no server side bookkeeping between the
// redirect and the callback.
//
// Example usage:
//
//	// Initialize OIDC handler
//	_ = oidc.Handler.Init(app, deps)
//
//	// Members can then access:
//	// GET  /auth/oidc/login    - Initiate OIDC login flow
//	// GET  /auth/oidc/callback - Handle provider callback
//	// GET  /auth/oidc/logout   - Logout and optionally end provider session
package oidc
