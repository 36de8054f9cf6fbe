package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty. The external
	// URL is required because redirect targets are validated against it.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")
)
