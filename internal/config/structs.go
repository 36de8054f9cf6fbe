package config

import (
	"time"

	"github.com/go-membergate/membergate/internal/logger"
)

// Session settings for issued login sessions.
type Session struct {
	CookieName   string        // name of the login session cookie
	ExpiryTime   time.Duration // lifetime of a plain login session
	RememberTime time.Duration // lifetime of a "remember me" login session
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
	Login     Login
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic   bool    // enable static file browsing (for development purposes only)
	DisableRecover bool    // disable recover middleware
	Domain         string  // domain name for the webserver
	Port           int     // listening port for the webserver
	ShutDownTime   int     // wait time for shutdown
	URL            string  `validate:"url"` // external base url, anchors continuation target validation
	Session        Session // session settings
}

// Auth groups the authentication provider settings.
type Auth struct {
	LocalDB LocalDBAuth
	LDAP    LDAPAuth
	OIDC    OIDCAuth
}

// LocalDBAuth settings for username/password accounts held in our own
// database.
type LocalDBAuth struct {
	Enabled bool
}

// LDAPAttributes maps directory attributes onto member fields.
type LDAPAttributes struct {
	Mail      string
	FirstName string
	LastName  string
}

// LDAPAuth settings for directory backed authentication.
type LDAPAuth struct {
	Enabled       bool
	URL           string `validate:"omitempty,url"` // ldap[s]://host:port
	BindDN        string
	BindPassword  string
	BaseDN        string
	UserFilter    string // e.g. "(uid={username})", the placeholder is replaced with the escaped identifier
	SkipTLSVerify bool
	Timeout       time.Duration
	Attributes    LDAPAttributes
}

// OIDCAuth settings for OpenID Connect single sign-on.
type OIDCAuth struct {
	Enabled      bool
	ProviderURL  string `validate:"omitempty,url"`
	ClientID     string
	ClientSecret string
	RedirectURL  string `validate:"omitempty,url"`
	Scopes       []string
	LogoutURL    string
}

// Login tunes what happens after a member authenticates.
type Login struct {
	DefaultDestination string        // where to send members when no continuation target exists
	PasswordMaxAge     time.Duration // force a password change after this age, 0 disables
}
