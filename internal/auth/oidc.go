package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/go-membergate/membergate/internal/config"
	"github.com/go-membergate/membergate/internal/db/models"
	"github.com/go-membergate/membergate/internal/uniuri"
)

// OIDCProvider handles OpenID Connect authentication. Accounts from the
// identity provider are mirrored into the local user table keyed by the
// subject claim.
type OIDCProvider struct {
	cfg      config.OIDCAuth
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
	db       *gorm.DB
}

// NewOIDCProvider creates a new OIDC provider. The provider URL is
// resolved through OIDC discovery, so the identity provider has to be
// reachable at startup.
func NewOIDCProvider(ctx context.Context, cfg config.OIDCAuth, db *gorm.DB) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, ErrProviderDisabled
	}

	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: cfg.ClientID,
	})

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}

	return &OIDCProvider{
		cfg:      cfg,
		provider: provider,
		verifier: verifier,
		oauth2:   oauth2Config,
		db:       db,
	}, nil
}

// Name identifies the provider in audit records and metrics.
func (p *OIDCProvider) Name() string {
	return string(models.AuthSourceOIDC)
}

// stateTokenLen is the length of the CSRF state token in characters.
const stateTokenLen = 32

// GenerateStateToken generates a random state token for CSRF protection
// of the authorization code flow.
func GenerateStateToken() string {
	return uniuri.NewLen(stateTokenLen)
}

// GetAuthURL returns the OIDC authorization URL with state token.
func (p *OIDCProvider) GetAuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// HandleCallback exchanges the authorization code, verifies the ID
// token and returns the mirrored user record.
func (p *OIDCProvider) HandleCallback(ctx context.Context, code string) (*models.User, error) {
	oauth2Token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims struct {
		Sub               string `json:"sub"`
		Email             string `json:"email"`
		EmailVerified     bool   `json:"email_verified"`
		PreferredUsername string `json:"preferred_username"`
		GivenName         string `json:"given_name"`
		FamilyName        string `json:"family_name"`
	}

	if err = idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.Email
	}

	return p.upsertUser(claims.Sub, username, claims.Email, claims.GivenName, claims.FamilyName)
}

// upsertUser creates or updates the mirrored user record for the
// subject. A locally deactivated mirror blocks the login even when the
// identity provider vouches for the subject.
func (p *OIDCProvider) upsertUser(sub, username, email, firstName, lastName string) (*models.User, error) {
	var user models.User

	err := p.db.Where("external_id = ? AND auth_source = ?", sub, models.AuthSourceOIDC).
		First(&user).Error

	now := time.Now()

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Active:      true,
			Username:    username,
			Email:       email,
			FirstName:   firstName,
			LastName:    lastName,
			AuthSource:  models.AuthSourceOIDC,
			ExternalID:  sub,
			LastLoginAt: &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err = p.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to query user: %w", err)
	default:
		if !user.Active {
			return nil, ErrUserAccountDisabled
		}

		user.Email = email
		user.FirstName = firstName
		user.LastName = lastName
		user.LastLoginAt = &now
		user.UpdatedAt = now

		if err = p.db.Save(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	return &user, nil
}

// GetLogoutURL constructs the identity provider's logout URL. A logout
// URL from the configuration wins over the discovered
// end_session_endpoint. Returns an empty string if neither is
// available.
func (p *OIDCProvider) GetLogoutURL(idTokenHint, postLogoutRedirectURI string) string {
	endpoint := p.cfg.LogoutURL

	if endpoint == "" {
		var claims struct {
			EndSessionEndpoint string `json:"end_session_endpoint"`
		}

		if err := p.provider.Claims(&claims); err != nil || claims.EndSessionEndpoint == "" {
			return ""
		}

		endpoint = claims.EndSessionEndpoint
	}

	params := url.Values{}

	if idTokenHint != "" {
		params.Set("id_token_hint", idTokenHint)
	}

	if postLogoutRedirectURI != "" {
		params.Set("post_logout_redirect_uri", postLogoutRedirectURI)
	}

	if len(params) == 0 {
		return endpoint
	}

	return endpoint + "?" + params.Encode()
}
