package auth

import "errors"

var (
	ErrMissingConfiguration     = errors.New("authenticator has no flow configured")
	ErrInvalidClientCredentials = errors.New("invalid client credentials")
	ErrInvalidScope             = errors.New("invalid scope")
)
