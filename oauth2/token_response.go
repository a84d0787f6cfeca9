package oauth2

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedTokenResponse is returned when a token endpoint answers 2xx
// with a body that is not a usable token.
var ErrMalformedTokenResponse = errors.New("malformed token response")

// TokenResponse represents the response from an OAuth2 token request
// (RFC 6749 section 5.1). refresh_token, scope and id_token are optional.
type TokenResponse struct {
	// AccessToken is the credential sent with every authenticated request.
	AccessToken string `json:"access_token"`

	// TokenType says how to present the access token, usually "bearer".
	// Sent as "Authorization: <token_type> <access_token>".
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int `json:"expires_in"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// Scope is the space separated list of granted scopes. May be narrower
	// than what was requested.
	Scope *string `json:"scope,omitempty"`

	// IdToken is present when an OpenID Connect scope was granted.
	IdToken *string `json:"id_token,omitempty"`
}

// DecodeTokenResponse parses a token endpoint body. A missing access_token,
// token_type or expires_in is an error; the optional members may be absent.
func DecodeTokenResponse(body []byte) (*TokenResponse, error) {
	var resp struct {
		TokenResponse
		ExpiresIn *int `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTokenResponse, err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access_token", ErrMalformedTokenResponse)
	}
	if resp.TokenType == "" {
		return nil, fmt.Errorf("%w: missing token_type", ErrMalformedTokenResponse)
	}
	if resp.ExpiresIn == nil {
		return nil, fmt.Errorf("%w: missing expires_in", ErrMalformedTokenResponse)
	}
	resp.TokenResponse.ExpiresIn = *resp.ExpiresIn
	return &resp.TokenResponse, nil
}

// ErrorResponse is the error body convention of token endpoints and most
// APIs: {"error": "...", "error_description": "..."}.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Message returns the most useful human readable part of the body.
func (e ErrorResponse) Message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.ErrorDescription
}

// ErrorMessage best-effort extracts a message from an error body. It returns
// "" when the body is not a JSON error object.
func ErrorMessage(body []byte) string {
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Message()
}
