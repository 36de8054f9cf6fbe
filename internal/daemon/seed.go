package daemon

import (
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/models"
)

// seed creates the initial admin account when the user table is empty.
// The account starts with an expired password, so the well known
// default never survives the first sign in.
func seed(cfg *config.Config, db *gorm.DB) {
	var count int64
	db.Model(&models.User{}).Count(&count)

	if count != 0 {
		return
	}

	admin := models.User{
		Active:          true,
		Username:        "admin",
		Email:           "admin@" + cfg.Webserver.Domain,
		Password:        models.HashPassword("changeme"),
		FirstName:       "Site",
		LastName:        "Admin",
		PasswordExpired: true,
		AuthSource:      models.AuthSourceLocal,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed admin account")

		return
	}

	log.Info().
		Str("username", admin.Username).
		Msg("seeded admin account with password \"changeme\", it must be changed at the first sign in")
}
