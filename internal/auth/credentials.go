package auth

// Field names of the submitted login form. The web handlers and the
// authentication providers share these so a provider never has to know
// how the transport named its inputs.
const (
	FieldIdentifier = "identifier"
	FieldSecret     = "secret"
	FieldOTP        = "otp"
	FieldRemember   = "remember"
)

// Credentials carries the fields a member submitted to prove their
// identity. It is a plain map so transports can pass provider specific
// extras through without the core types growing a field per provider.
type Credentials map[string]string

// Identifier returns the submitted account identifier, usually a
// username or email address.
func (c Credentials) Identifier() string {
	return c[FieldIdentifier]
}

// Secret returns the submitted password. Callers must not log or echo
// this value.
func (c Credentials) Secret() string {
	return c[FieldSecret]
}

// OTP returns the submitted one time code, if any.
func (c Credentials) OTP() string {
	return c[FieldOTP]
}

// Remember reports whether the member asked for a persistent session.
func (c Credentials) Remember() bool {
	switch c[FieldRemember] {
	case "1", "true", "on", "yes":
		return true
	}

	return false
}

// Redacted returns a copy safe for logging, with the secret fields
// removed.
func (c Credentials) Redacted() Credentials {
	out := make(Credentials, len(c))

	for k, v := range c {
		if k == FieldSecret || k == FieldOTP {
			continue
		}

		out[k] = v
	}

	return out
}
