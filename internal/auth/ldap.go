package auth

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/models"
)

// LDAPProvider handles directory backed authentication. Directory
// accounts are mirrored into the local user table so the rest of the
// application only ever deals with models.User.
type LDAPProvider struct {
	cfg     config.LDAPAuth
	db      *gorm.DB
	timeout time.Duration
}

// NewLDAPProvider creates a new LDAP provider.
func NewLDAPProvider(cfg config.LDAPAuth, db *gorm.DB) (*LDAPProvider, error) {
	if !cfg.Enabled {
		return nil, ErrProviderDisabled
	}

	// Set defaults
	if cfg.UserFilter == "" {
		cfg.UserFilter = "(uid={username})"
	}

	if cfg.Attributes.Mail == "" {
		cfg.Attributes.Mail = "mail"
	}

	if cfg.Attributes.FirstName == "" {
		cfg.Attributes.FirstName = "givenName"
	}

	if cfg.Attributes.LastName == "" {
		cfg.Attributes.LastName = "sn"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &LDAPProvider{
		cfg:     cfg,
		db:      db,
		timeout: timeout,
	}, nil
}

// Name identifies the provider in audit records and metrics.
func (p *LDAPProvider) Name() string {
	return string(models.AuthSourceLDAP)
}

// Connect establishes a connection to the LDAP server. The scheme of
// the configured URL decides between plain LDAP and LDAPS.
func (p *LDAPProvider) Connect() (*ldap.Conn, error) {
	var opts []ldap.DialOpt

	if p.cfg.SkipTLSVerify {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // skipping verifying tls is ok
		}))
	}

	conn, err := ldap.DialURL(p.cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	conn.SetTimeout(p.timeout)

	return conn, nil
}

// Authenticate authenticates a user against the directory and mirrors
// the entry into the local user table.
func (p *LDAPProvider) Authenticate(creds Credentials) (*models.User, error) {
	conn, err := p.Connect()
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if errBindService := p.bindServiceForSearch(conn); errBindService != nil {
		return nil, errBindService
	}

	userEntry, errSearch := p.searchUserEntry(conn, creds.Identifier())
	if errSearch != nil {
		return nil, errSearch
	}

	if errAuthAsUser := p.authenticateAsUser(conn, userEntry.DN, creds.Secret()); errAuthAsUser != nil {
		return nil, errAuthAsUser
	}

	email := userEntry.GetAttributeValue(p.cfg.Attributes.Mail)
	firstName := userEntry.GetAttributeValue(p.cfg.Attributes.FirstName)
	lastName := userEntry.GetAttributeValue(p.cfg.Attributes.LastName)

	user, errUpsert := p.upsertUser(creds.Identifier(), userEntry.DN, email, firstName, lastName)
	if errUpsert != nil {
		return nil, errUpsert
	}

	return user, nil
}

// bindServiceForSearch binds with the configured service account (if provided)
// to perform user search. Returns a wrapped error on failure.
func (p *LDAPProvider) bindServiceForSearch(conn *ldap.Conn) error {
	if p.cfg.BindDN == "" {
		return nil
	}

	if err := conn.Bind(p.cfg.BindDN, p.cfg.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// searchUserEntry searches the directory for the given username and
// returns a single entry.
func (p *LDAPProvider) searchUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	userFilter := strings.ReplaceAll(p.cfg.UserFilter, "{username}", ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		p.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		int(p.timeout.Seconds()),
		false,
		userFilter,
		[]string{
			p.cfg.Attributes.Mail,
			p.cfg.Attributes.FirstName,
			p.cfg.Attributes.LastName,
			"dn",
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

// authenticateAsUser binds to the directory using the user's DN and
// password. A bind rejected with invalid credentials maps to the
// package's rejection sentinel so callers can tell it apart from an
// unreachable server.
func (p *LDAPProvider) authenticateAsUser(conn *ldap.Conn, userDN, password string) error {
	err := conn.Bind(userDN, password)
	if err == nil {
		return nil
	}

	if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
		return ErrInvalidPassword
	}

	return fmt.Errorf("authentication failed: %w", err)
}

// upsertUser creates or updates the mirrored user record based on the
// directory attributes. A locally deactivated mirror blocks the login
// even when the directory still accepts the credentials.
func (p *LDAPProvider) upsertUser(username, userDN, email, firstName, lastName string) (*models.User, error) {
	var user models.User

	err := p.db.Where("external_id = ? AND auth_source = ?", userDN, models.AuthSourceLDAP).
		First(&user).Error

	notFound := errors.Is(err, gorm.ErrRecordNotFound)

	now := time.Now()

	if notFound {
		user = models.User{
			Active:      true,
			Username:    username,
			Email:       email,
			FirstName:   firstName,
			LastName:    lastName,
			AuthSource:  models.AuthSourceLDAP,
			ExternalID:  userDN,
			LastLoginAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err = p.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		return &user, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	// Update existing user
	user.Email = email
	user.FirstName = firstName
	user.LastName = lastName
	user.LastLoginAt = &now
	user.UpdatedAt = now

	if err = p.db.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return &user, nil
}

// TestConnection tests the directory server connection and bind
// credentials. Returns nil if the connection and bind are successful.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.Connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if p.cfg.BindDN != "" {
		if err := conn.Bind(p.cfg.BindDN, p.cfg.BindPassword); err != nil {
			return fmt.Errorf("bind failed: %w", err)
		}
	}

	return nil
}
