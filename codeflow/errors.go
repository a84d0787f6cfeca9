package codeflow

import (
	"errors"
	"fmt"
)

var (
	ErrBadLoginURL    = errors.New("authorize url cannot be built")
	ErrBadRedirectURI = errors.New("invalid redirect uri")

	ErrMissingQueryItems = errors.New("callback has no query items")
	ErrMissingState      = errors.New("callback is missing the state parameter")
	ErrMissingCode       = errors.New("callback is missing the code parameter")
	ErrStateMismatch     = errors.New("callback state does not match a pending authorization")
	ErrExpired           = errors.New("pending authorization expired")
)

// AuthorizationError is an error redirect from the authorization server
// (RFC 6749 section 4.1.2.1).
type AuthorizationError struct {
	Code        string
	Description string
	URI         string
}

func (e *AuthorizationError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("authorization failed: %s", e.Code)
	}
	return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
}
