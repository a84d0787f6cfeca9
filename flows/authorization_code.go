package flows

import (
	"github.com/jrsteele09/go-oauth-broker/internal/utils"
	"github.com/jrsteele09/go-oauth-broker/oauth2"
)

// AuthorizationCode exchanges a code returned by the authorize endpoint
// (RFC 6749 section 4.1.3), optionally proving possession of a PKCE verifier.
type AuthorizationCode struct {
	// ID identifies the OAuth2 client.
	ID string

	// Code is the authorization code from the callback.
	// Usage: Exchanged once for tokens, then becomes invalid
	Code string

	// RedirectURL must match the redirect_uri of the authorize request.
	RedirectURL string

	// CodeVerifier is the PKCE verifier matching the code_challenge sent
	// with the authorize request. Nil when PKCE was not used.
	CodeVerifier *string
}

var _ Flow = AuthorizationCode{}

func (f AuthorizationCode) ClientID() string { return f.ID }

func (f AuthorizationCode) GrantType() oauth2.GrantType {
	return oauth2.AuthorizationCodeGrant
}

func (f AuthorizationCode) RequestBody() []byte {
	fields := map[string]string{
		oauth2.ParamCode:        f.Code,
		oauth2.ParamRedirectURI: f.RedirectURL,
		oauth2.ParamClientID:    f.ID,
	}
	if f.CodeVerifier != nil {
		fields[oauth2.ParamCodeVerifier] = *f.CodeVerifier
	}
	return encodeForm(f.GrantType(), fields)
}

func (f AuthorizationCode) QueryParameters() map[string]string { return nil }

// IsValid holds when any of client id, code or redirect URL is set.
func (f AuthorizationCode) IsValid() bool {
	return f.ID != "" || f.Code != "" || f.RedirectURL != ""
}

func (f AuthorizationCode) Equal(other Flow) bool {
	o, ok := other.(AuthorizationCode)
	if !ok {
		return false
	}
	return f.ID == o.ID &&
		f.Code == o.Code &&
		f.RedirectURL == o.RedirectURL &&
		utils.EqualPtr(f.CodeVerifier, o.CodeVerifier)
}
