package models

import (
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// AuthSource represents the authentication source for a user account.
// It indicates how the user authenticates (local database, LDAP, or OIDC).
type AuthSource string

const (
	// AuthSourceLocal indicates the user authenticates with a local database password.
	AuthSourceLocal AuthSource = "local"
	// AuthSourceOIDC indicates the user authenticates via OpenID Connect (OIDC).
	AuthSourceOIDC AuthSource = "oidc"
	// AuthSourceLDAP indicates the user authenticates via LDAP or Active Directory.
	AuthSourceLDAP AuthSource = "ldap"
)

// User represents a member account.
// Members can authenticate via local database, LDAP, or OIDC.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active and can log in.
	Active bool
	// Username is the unique username for login.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the user's email address.
	Email string `gorm:"size:255;not null"`
	// Password is the Argon2id hashed password (only used for local authentication).
	// Accounts imported from the previous generation of the site may still
	// carry a bcrypt hash, it is upgraded on their next successful login.
	Password string `gorm:"size:255"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100"`
	// PasswordExpired forces a password change on the next login.
	PasswordExpired bool
	// PasswordChangedAt is the timestamp of the last password change.
	PasswordChangedAt time.Time
	// TOTPSecret holds the shared secret for time based one time passwords.
	// Empty means the account has no second factor enrolled.
	TOTPSecret string `gorm:"size:255"`
	// AuthSource indicates how this user authenticates (local, oidc, or ldap).
	AuthSource AuthSource `gorm:"type:varchar(20);not null;default:'local'"`
	// ExternalID is the external identifier for OIDC (sub claim) or LDAP (DN) users.
	ExternalID string `gorm:"size:255"`
	// LastLoginAt is the timestamp of the last successful login (nil if never).
	LastLoginAt *time.Time
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// This function should be used when creating or updating local user passwords.
// It uses the default Argon2id parameters for secure password hashing.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// Argon2id hashes are the norm, bcrypt hashes of imported accounts are still
// accepted so those members can log in before the hash upgrade happens.
// Returns true if the password matches, false otherwise.
func (u *User) VerifyPassword(password string) bool {
	if u.HasLegacyPasswordHash() {
		return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
	}

	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

// HasLegacyPasswordHash reports whether the stored hash is a bcrypt hash
// from an imported account.
func (u *User) HasLegacyPasswordHash() bool {
	return strings.HasPrefix(u.Password, "$2a$") ||
		strings.HasPrefix(u.Password, "$2b$") ||
		strings.HasPrefix(u.Password, "$2y$")
}

// DisplayName returns the name shown in greetings, the first name when
// known, otherwise the username.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}

	return u.Username
}

// IsPasswordExpired reports whether the member must change the password
// before continuing. A zero maxAge disables age based expiry.
func (u *User) IsPasswordExpired(maxAge time.Duration) bool {
	if u.AuthSource != AuthSourceLocal {
		// directory and sso accounts manage passwords elsewhere
		return false
	}

	if u.PasswordExpired {
		return true
	}

	if maxAge > 0 && !u.PasswordChangedAt.IsZero() && time.Since(u.PasswordChangedAt) > maxAge {
		return true
	}

	return false
}
