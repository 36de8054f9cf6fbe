package handler

import (
	"net/url"
	"strings"
)

// SanitizeBackURL validates a requested redirect destination. Two
// shapes survive: a relative path on this site, or an absolute URL on
// the configured site address, which is reduced to its relative part.
// Everything else is dropped so the redirect after login, logout or a
// password change can never be used as an open redirector.
func SanitizeBackURL(raw, siteURL string) (string, bool) {
	if raw == "" {
		return "", false
	}

	if strings.ContainsAny(raw, "\r\n\t\x00") {
		return "", false
	}

	if strings.HasPrefix(raw, "/") {
		// Protocol relative URLs and backslash tricks change hosts.
		if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
			return "", false
		}

		if _, err := url.Parse(raw); err != nil {
			return "", false
		}

		return raw, true
	}

	target, err := url.Parse(raw)
	if err != nil || !target.IsAbs() || target.Host == "" {
		return "", false
	}

	site, err := url.Parse(siteURL)
	if err != nil {
		return "", false
	}

	if !strings.EqualFold(target.Scheme, site.Scheme) || !strings.EqualFold(target.Host, site.Host) {
		return "", false
	}

	return target.RequestURI(), true
}
