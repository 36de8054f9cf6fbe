package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/db/models"
)

// LocalProvider handles local database authentication.
type LocalProvider struct {
	db *gorm.DB

	// TOTPIssuer is the issuer name stamped into enrollment URLs.
	TOTPIssuer string
}

const (
	whereIDAndAuthSource = "id = ? AND auth_source = ?"

	whereID = "id = ?"

	defaultTOTPIssuer = "MemberGate"
)

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db:         db,
		TOTPIssuer: defaultTOTPIssuer,
	}
}

// Name identifies the provider in audit records and metrics.
func (p *LocalProvider) Name() string {
	return string(models.AuthSourceLocal)
}

// Authenticate authenticates a user against the local database.
func (p *LocalProvider) Authenticate(creds Credentials) (*models.User, error) {
	var user models.User

	err := p.db.Where("username = ? AND auth_source = ?", creds.Identifier(), models.AuthSourceLocal).
		First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	if !user.VerifyPassword(creds.Secret()) {
		return nil, ErrInvalidPassword
	}

	if err := p.verifyTOTP(&user, creds.OTP()); err != nil {
		return nil, err
	}

	p.recordLogin(&user, creds.Secret())

	return &user, nil
}

// verifyTOTP checks the one time code for accounts with an enrolled
// second factor. Accounts without a secret pass through.
func (p *LocalProvider) verifyTOTP(user *models.User, code string) error {
	if user.TOTPSecret == "" {
		return nil
	}

	if code == "" {
		return ErrTOTPRequired
	}

	if !totp.Validate(code, user.TOTPSecret) {
		return ErrInvalidTOTPCode
	}

	return nil
}

// recordLogin stores the login time and upgrades legacy bcrypt hashes
// now that the plaintext is known to verify. Failures here must not
// fail the login, the member already proved their identity.
func (p *LocalProvider) recordLogin(user *models.User, password string) {
	now := time.Now()
	user.LastLoginAt = &now
	user.UpdatedAt = now

	if user.HasLegacyPasswordHash() {
		user.Password = models.HashPassword(password)

		log.Info().Uint64("user_id", user.ID).Msg("upgraded legacy password hash")
	}

	if err := p.db.Save(user).Error; err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to store login bookkeeping")
	}
}

// CreateUser creates a new local user.
func (p *LocalProvider) CreateUser(
	username, email, password, firstName, lastName string,
) (*models.User, error) {
	// Check if user already exists
	var existingUser models.User

	err := p.db.Where("username = ? OR email = ?", username, email).First(&existingUser).Error
	if err == nil {
		return nil, ErrUserNameOrEmailExists
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	user := models.User{
		Active:            true,
		Username:          username,
		Email:             email,
		Password:          models.HashPassword(password),
		FirstName:         firstName,
		LastName:          lastName,
		PasswordChangedAt: time.Now(),
		AuthSource:        models.AuthSourceLocal,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if err := p.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// UpdateUser updates an existing local user's profile fields.
func (p *LocalProvider) UpdateUser(userID uint64, email, firstName, lastName string) error {
	updates := map[string]interface{}{
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
		"updated_at": time.Now(),
	}

	return p.db.Model(&models.User{}).
		Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).
		Updates(updates).Error
}

// ChangePassword changes a user's password after verifying the old one.
// A successful change clears the expiry flag and restarts the password
// age clock.
func (p *LocalProvider) ChangePassword(userID uint64, oldPassword, newPassword string) error {
	var user models.User
	if err := p.db.Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).
		First(&user).Error; err != nil {
		return fmt.Errorf("user not found: %w", err)
	}

	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Updates(map[string]interface{}{
			"password":            models.HashPassword(newPassword),
			"password_expired":    false,
			"password_changed_at": time.Now(),
			"updated_at":          time.Now(),
		}).Error
}

// ResetPassword sets a user's password without knowing the old one
// (admin function). The account is flagged so the member has to pick
// their own password at the next login.
func (p *LocalProvider) ResetPassword(userID uint64, newPassword string) error {
	return p.db.Model(&models.User{}).
		Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).
		Updates(map[string]interface{}{
			"password":            models.HashPassword(newPassword),
			"password_expired":    true,
			"password_changed_at": time.Now(),
			"updated_at":          time.Now(),
		}).Error
}

// ExpirePassword forces a password change at the user's next login.
func (p *LocalProvider) ExpirePassword(userID uint64) error {
	return p.db.Model(&models.User{}).
		Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).
		Update("password_expired", true).Error
}

// EnrollTOTP generates and stores a new second factor secret for the
// user. The returned key carries the otpauth URL for the enrollment QR
// code.
func (p *LocalProvider) EnrollTOTP(userID uint64) (*otp.Key, error) {
	var user models.User
	if err := p.db.Where(whereIDAndAuthSource, userID, models.AuthSourceLocal).
		First(&user).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.TOTPIssuer,
		AccountName: user.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	if err := p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("totp_secret", key.Secret()).Error; err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	return key, nil
}

// DisableTOTP removes the user's second factor.
func (p *LocalProvider) DisableTOTP(userID uint64) error {
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("totp_secret", "").Error
}

// ActivateUser activates a user account.
func (p *LocalProvider) ActivateUser(userID uint64) error {
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("active", true).Error
}

// DeactivateUser deactivates a user account.
func (p *LocalProvider) DeactivateUser(userID uint64) error {
	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("active", false).Error
}

// DeleteUser soft deletes a user.
func (p *LocalProvider) DeleteUser(userID uint64) error {
	return p.db.Delete(&models.User{}, userID).Error
}

// GetUserByID retrieves a user by ID.
func (p *LocalProvider) GetUserByID(userID uint64) (*models.User, error) {
	var user models.User
	if err := p.db.First(&user, userID).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (p *LocalProvider) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// ListUsers lists all users with optional filters.
func (p *LocalProvider) ListUsers(
	authSource models.AuthSource,
	active *bool,
	limit, offset int,
) ([]models.User, int64, error) {
	var users []models.User

	var total int64

	query := p.db.Model(&models.User{})

	if authSource != "" {
		query = query.Where("auth_source = ?", authSource)
	}

	if active != nil {
		query = query.Where("active = ?", *active)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("username").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}
