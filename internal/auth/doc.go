// Package auth verifies member credentials against the configured
// authentication sources.
//
// Three providers are available:
//
//   - LocalProvider checks username/password pairs against the local
//     database, with Argon2id hashing, transparent upgrade of legacy
//     bcrypt hashes and an optional TOTP second factor.
//   - LDAPProvider authenticates against an LDAP or Active Directory
//     server and mirrors matching entries into the local user table.
//   - OIDCProvider implements the OAuth2 authorization code flow
//     against an OpenID Connect identity provider and mirrors the
//     subject into the local user table.
//
// LocalProvider and LDAPProvider implement the Authenticator interface
// and are driven by the submitted login form. OIDCProvider is driven by
// the browser redirect flow and is called from its own handlers.
//
// # Error taxonomy
//
// Providers distinguish rejections from failures. A rejection means the
// provider reached a verdict about the credentials and said no:
// ErrUserNotFound, ErrInvalidPassword, ErrUserAccountDisabled,
// ErrTOTPRequired, ErrInvalidTOTPCode, ErrMultipleUsersFound. Any other
// error means the provider itself broke, for example an unreachable
// directory server, and no verdict exists. IsRejection tells the two
// apart so callers can blame the right party.
//
// Example usage:
//
//	local := auth.NewLocalProvider(db)
//
//	user, err := local.Authenticate(auth.Credentials{
//	    auth.FieldIdentifier: "jdoe",
//	    auth.FieldSecret:     password,
//	})
//	if auth.IsRejection(err) {
//	    // wrong credentials, show the generic failure message
//	}
package auth
