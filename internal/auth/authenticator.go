package auth

import (
	"errors"

	"github.com/go-membergate/membergate/internal/db/models"
)

// Authenticator resolves submitted credentials to a member account.
//
// Implementations report rejections through the sentinel errors of this
// package (ErrUserNotFound, ErrInvalidPassword, ErrUserAccountDisabled,
// ErrTOTPRequired, ErrInvalidTOTPCode). Any other error means the
// provider itself failed, for example an unreachable directory server,
// and the caller should treat the outcome as unknown rather than as a
// rejection.
type Authenticator interface {
	// Name identifies the provider in audit records and metrics.
	Name() string

	// Authenticate verifies the credentials and returns the matching
	// account. Implementations must not retain the secret.
	Authenticate(creds Credentials) (*models.User, error)
}

// IsRejection reports whether err is a credential rejection rather than
// a provider failure. Rejections are safe to show to the member as a
// generic failure message; provider failures are not their fault.
func IsRejection(err error) bool {
	for _, sentinel := range []error{
		ErrUserNotFound,
		ErrInvalidPassword,
		ErrUserAccountDisabled,
		ErrTOTPRequired,
		ErrInvalidTOTPCode,
		ErrMultipleUsersFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}
