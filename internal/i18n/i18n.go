// Package i18n localizes the short messages the web interface shows to
// members. The catalog is compiled in, there is no runtime loading of
// translation files.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. The English text doubles as the catalog key, so an
// untranslated language degrades to English instead of to a bare key.
const (
	MsgWelcomeBack     = "Welcome back, %s!"
	MsgSignedOut       = "You have been signed out."
	MsgLoginFailed     = "Sign in failed. Please check your credentials and try again."
	MsgOTPRequired     = "Enter the one time code from your authenticator app."
	MsgPasswordExpired = "Your password has expired. Please choose a new one."
	MsgPasswordChanged = "Your password has been changed."
)

// Supported lists the languages the interface ships translations for.
// The first entry is the fallback.
var Supported = []language.Tag{ //nolint:gochecknoglobals
	language.English,
	language.German,
}

//nolint:gochecknoinits // the catalog has to be filled before first use
func init() {
	for _, entry := range []struct {
		key    string
		german string
	}{
		{MsgWelcomeBack, "Willkommen zurück, %s!"},
		{MsgSignedOut, "Sie wurden abgemeldet."},
		{MsgLoginFailed, "Anmeldung fehlgeschlagen. Bitte prüfen Sie Ihre Zugangsdaten und versuchen Sie es erneut."},
		{MsgOTPRequired, "Geben Sie den Einmalcode aus Ihrer Authenticator-App ein."},
		{MsgPasswordExpired, "Ihr Passwort ist abgelaufen. Bitte wählen Sie ein neues."},
		{MsgPasswordChanged, "Ihr Passwort wurde geändert."},
	} {
		if err := message.SetString(language.English, entry.key, entry.key); err != nil {
			panic(err)
		}

		if err := message.SetString(language.German, entry.key, entry.german); err != nil {
			panic(err)
		}
	}
}

// Translator picks the best supported language for a request and
// renders catalog messages in it.
type Translator struct {
	matcher language.Matcher
}

// New creates a translator over the supported languages.
func New() *Translator {
	return &Translator{
		matcher: language.NewMatcher(Supported),
	}
}

// Match resolves an Accept-Language header to the closest supported
// language. An empty or unparsable header resolves to the fallback.
func (t *Translator) Match(acceptLanguage string) language.Tag {
	_, idx := language.MatchStrings(t.matcher, acceptLanguage)

	return Supported[idx]
}

// Sprintf renders the message for the language matched from the given
// Accept-Language header.
func (t *Translator) Sprintf(acceptLanguage, key string, args ...interface{}) string {
	return message.NewPrinter(t.Match(acceptLanguage)).Sprintf(key, args...)
}
