package login

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"

	"github.com/go-membergate/membergate/internal/audit"
	"github.com/go-membergate/membergate/internal/auth"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/i18n"
)

const (
	authTypeLocal = "local"
	authTypeLDAP  = "ldap"
)

// loginForm is the submitted login form. Empty credential fields are
// not rejected here, the provider decides what to make of them.
type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	OTP      string `form:"otp"`
	Remember bool   `form:"remember"`
	AuthType string `form:"auth_type"`
	BackURL  string `form:"back_url"`
}

// credentials maps the form fields into the provider contract.
func (f *loginForm) credentials() auth.Credentials {
	creds := auth.Credentials{
		auth.FieldIdentifier: f.Username,
		auth.FieldSecret:     f.Password,
		auth.FieldOTP:        f.OTP,
	}

	if f.Remember {
		creds[auth.FieldRemember] = "1"
	}

	return creds
}

// pickAuthType resolves which provider handles the attempt. Without an
// explicit request the first enabled provider wins, local before ldap.
func (s *Service) pickAuthType(requested string) (string, error) {
	switch requested {
	case "":
		switch {
		case s.cfg.Auth.LocalDB.Enabled:
			return authTypeLocal, nil
		case s.cfg.Auth.LDAP.Enabled:
			return authTypeLDAP, nil
		default:
			return "", ErrNoAuthMethod
		}
	case authTypeLocal:
		if !s.cfg.Auth.LocalDB.Enabled {
			return "", ErrLocalAuthDisabled
		}

		return authTypeLocal, nil
	case authTypeLDAP:
		if !s.cfg.Auth.LDAP.Enabled || s.ldapAuth == nil {
			return "", ErrLDAPAuthDisabled
		}

		return authTypeLDAP, nil
	default:
		return "", ErrInvalidAuthMethod
	}
}

// authenticate runs the credentials through the selected provider.
// Credential rejections come back wrapped in ErrInvalidCredentials so
// callers can treat them uniformly without losing the provider's
// verdict.
func (s *Service) authenticate(authType string, creds auth.Credentials) (*models.User, error) {
	var provider auth.Authenticator

	switch authType {
	case authTypeLocal:
		if s.localAuth == nil {
			return nil, ErrLocalAuthDisabled
		}

		provider = s.localAuth
	case authTypeLDAP:
		if s.ldapAuth == nil {
			return nil, ErrLDAPAuthDisabled
		}

		provider = s.ldapAuth
	default:
		return nil, ErrInvalidAuthMethod
	}

	user, err := provider.Authenticate(creds)
	if err != nil {
		if auth.IsRejection(err) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}

		return nil, err
	}

	return user, nil
}

// failedLogin runs the failure path: notify the observers, write the
// echo and re-render the form. Every credential rejection shows the
// same generic message so the form never confirms which part was
// wrong.
func (s *Service) failedLogin(
	c *fiber.Ctx,
	sess *session.Session,
	form *loginForm,
	authType string,
	errAuth error,
) error {
	log.Debug().Err(errAuth).Str("identifier", form.Username).Msg("login attempt failed")

	s.deps.Audit.Notify(audit.Failure(
		form.Username,
		failureReason(errAuth),
		authType,
		c.IP(),
		c.Get(fiber.HeaderUserAgent),
	))

	writeEcho(sess, form.Username, form.Remember)
	saveFormSession(sess)

	lang := c.Get(fiber.HeaderAcceptLanguage)

	data := fiber.Map{
		"error":      s.translator.Sprintf(lang, i18n.MsgLoginFailed),
		"identifier": form.Username,
		"remember":   form.Remember,
		"back_url":   form.BackURL,
	}

	switch {
	case errors.Is(errAuth, auth.ErrTOTPRequired), errors.Is(errAuth, auth.ErrInvalidTOTPCode):
		data["error"] = s.translator.Sprintf(lang, i18n.MsgOTPRequired)
		data["otp_required"] = true
	case !auth.IsRejection(errAuth):
		data["error"] = ErrInternalServerError.Error()
	}

	return s.renderForm(c, data)
}

// failureReason classifies an authentication error for the audit
// trail.
func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return "unknown user"
	case errors.Is(err, auth.ErrInvalidPassword):
		return "invalid password"
	case errors.Is(err, auth.ErrUserAccountDisabled):
		return "account disabled"
	case errors.Is(err, auth.ErrTOTPRequired):
		return "second factor required"
	case errors.Is(err, auth.ErrInvalidTOTPCode):
		return "invalid second factor"
	case errors.Is(err, auth.ErrMultipleUsersFound):
		return "ambiguous identifier"
	default:
		return "provider failure"
	}
}
