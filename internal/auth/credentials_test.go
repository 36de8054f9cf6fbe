package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentialsRemember(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"on", true},
		{"yes", true},
		{"", false},
		{"0", false},
		{"false", false},
		{"off", false},
	}

	for _, tt := range tests {
		t.Run("value "+tt.value, func(t *testing.T) {
			creds := Credentials{FieldRemember: tt.value}
			assert.Equal(t, tt.want, creds.Remember())
		})
	}
}

func TestCredentialsRedacted(t *testing.T) {
	creds := Credentials{
		FieldIdentifier: "jdoe",
		FieldSecret:     "hunter2",
		FieldOTP:        "123456",
		FieldRemember:   "1",
	}

	redacted := creds.Redacted()

	assert.Equal(t, "jdoe", redacted.Identifier())
	assert.Empty(t, redacted.Secret())
	assert.Empty(t, redacted.OTP())
	assert.True(t, redacted.Remember())

	// The original must be untouched.
	assert.Equal(t, "hunter2", creds.Secret())
}
