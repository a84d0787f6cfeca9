package flows

import (
	"github.com/jrsteele09/go-oauth-broker/internal/utils"
	"github.com/jrsteele09/go-oauth-broker/oauth2"
)

// RefreshToken exchanges a refresh token for a new access token
// (RFC 6749 section 6).
type RefreshToken struct {
	ID string

	// ClientSecret is sent only for confidential clients.
	ClientSecret *string

	// Token is the refresh token itself.
	// Behavior: Typically rotated, the old one invalidated on use
	Token string
}

var (
	_ Flow                = RefreshToken{}
	_ ClientSecretCarrier = RefreshToken{}
)

// NewRefreshToken builds a refresh grant for clientID. An empty secret is
// treated as absent.
func NewRefreshToken(clientID, refreshToken, clientSecret string) RefreshToken {
	return RefreshToken{
		ID:           clientID,
		ClientSecret: utils.NonEmpty(clientSecret),
		Token:        refreshToken,
	}
}

func (f RefreshToken) ClientID() string { return f.ID }

func (f RefreshToken) GrantType() oauth2.GrantType {
	return oauth2.RefreshTokenCodeGrant
}

func (f RefreshToken) Secret() (string, bool) {
	return utils.Value(f.ClientSecret), f.ClientSecret != nil
}

func (f RefreshToken) RequestBody() []byte {
	fields := map[string]string{
		oauth2.ParamClientID:     f.ID,
		oauth2.ParamRefreshToken: f.Token,
	}
	if f.ClientSecret != nil {
		fields[oauth2.ParamClientSecret] = *f.ClientSecret
	}
	return encodeForm(f.GrantType(), fields)
}

func (f RefreshToken) QueryParameters() map[string]string { return nil }

// IsValid holds when either the client id or the refresh token is set.
func (f RefreshToken) IsValid() bool {
	return f.ID != "" || f.Token != ""
}

func (f RefreshToken) Equal(other Flow) bool {
	o, ok := other.(RefreshToken)
	if !ok {
		return false
	}
	return f.ID == o.ID &&
		f.Token == o.Token &&
		utils.EqualPtr(f.ClientSecret, o.ClientSecret)
}
