package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-membergate/membergate/internal/db/models"
)

func TestVerifyPassword(t *testing.T) {
	u := models.User{Password: models.HashPassword("s3cret")}

	assert.False(t, u.HasLegacyPasswordHash())
	assert.True(t, u.VerifyPassword("s3cret"))
	assert.False(t, u.VerifyPassword("wrong"))
	assert.False(t, u.VerifyPassword(""))
}

func TestVerifyLegacyPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	u := models.User{Password: string(hash)}

	assert.True(t, u.HasLegacyPasswordHash())
	assert.True(t, u.VerifyPassword("s3cret"))
	assert.False(t, u.VerifyPassword("wrong"))
}

func TestDisplayName(t *testing.T) {
	u := models.User{Username: "jdoe"}
	assert.Equal(t, "jdoe", u.DisplayName())

	u.FirstName = "Jane"
	assert.Equal(t, "Jane", u.DisplayName())
}

func TestIsPasswordExpired(t *testing.T) {
	tests := []struct {
		name   string
		user   models.User
		maxAge time.Duration
		want   bool
	}{
		{
			name:   "fresh local account",
			user:   models.User{AuthSource: models.AuthSourceLocal, PasswordChangedAt: time.Now()},
			maxAge: time.Hour,
			want:   false,
		},
		{
			name:   "flagged expired",
			user:   models.User{AuthSource: models.AuthSourceLocal, PasswordExpired: true},
			maxAge: 0,
			want:   true,
		},
		{
			name:   "aged out",
			user:   models.User{AuthSource: models.AuthSourceLocal, PasswordChangedAt: time.Now().Add(-2 * time.Hour)},
			maxAge: time.Hour,
			want:   true,
		},
		{
			name:   "age based expiry disabled",
			user:   models.User{AuthSource: models.AuthSourceLocal, PasswordChangedAt: time.Now().Add(-2 * time.Hour)},
			maxAge: 0,
			want:   false,
		},
		{
			name:   "unknown change date never ages out",
			user:   models.User{AuthSource: models.AuthSourceLocal},
			maxAge: time.Hour,
			want:   false,
		},
		{
			name:   "directory account is exempt",
			user:   models.User{AuthSource: models.AuthSourceLDAP, PasswordExpired: true},
			maxAge: time.Hour,
			want:   false,
		},
		{
			name:   "sso account is exempt",
			user:   models.User{AuthSource: models.AuthSourceOIDC, PasswordExpired: true},
			maxAge: time.Hour,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.IsPasswordExpired(tt.maxAge))
		})
	}
}
