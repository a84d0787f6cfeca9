package token

import (
	"time"

	"github.com/jrsteele09/go-oauth-broker/internal/utils"
	"github.com/jrsteele09/go-oauth-broker/oauth2"
	xoauth2 "golang.org/x/oauth2"
)

// DefaultType is the token type of the empty sentinel.
const DefaultType = "bearer"

// Token is a bearer credential and its validity window. It is replaced as a
// unit, never edited field by field once built.
//
// IssuedAt is not part of the JSON form: it is stamped locally when the token
// endpoint answers, and persisted separately by the token store.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	Scope        string    `json:"scope,omitempty"`
	IssuedAt     time.Time `json:"-"`
}

// Empty returns the sentinel token. ExpiresIn is 0 so it is never valid.
func Empty() Token {
	return Token{TokenType: DefaultType, IssuedAt: time.Now()}
}

// FromResponse builds a token from a token endpoint response received at
// receivedAt. Server supplied timestamps are ignored.
func FromResponse(resp *oauth2.TokenResponse, receivedAt time.Time) Token {
	return Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: utils.Value(resp.RefreshToken),
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		Scope:        utils.Value(resp.Scope),
		IssuedAt:     receivedAt,
	}
}

// IsValid reports whether the token is inside its validity window now.
func (t Token) IsValid() bool {
	return t.IsValidAt(time.Now())
}

// IsValidAt reports whether now - IssuedAt < ExpiresIn.
func (t Token) IsValidAt(now time.Time) bool {
	return now.Sub(t.IssuedAt) < time.Duration(t.ExpiresIn)*time.Second
}

// ExpiresAt is the instant the token stops being valid.
func (t Token) ExpiresAt() time.Time {
	return t.IssuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// HasRefreshToken reports whether a refresh grant can be attempted.
func (t Token) HasRefreshToken() bool {
	return t.RefreshToken != ""
}

// WithIssuedAt returns a copy of t stamped with issuedAt.
func (t Token) WithIssuedAt(issuedAt time.Time) Token {
	t.IssuedAt = issuedAt
	return t
}

// WithRefreshToken returns a copy of t carrying refreshToken.
func (t Token) WithRefreshToken(refreshToken string) Token {
	t.RefreshToken = refreshToken
	return t
}

// Equal is structural equality over every field.
func (t Token) Equal(other Token) bool {
	return t.AccessToken == other.AccessToken &&
		t.RefreshToken == other.RefreshToken &&
		t.TokenType == other.TokenType &&
		t.ExpiresIn == other.ExpiresIn &&
		t.Scope == other.Scope &&
		t.IssuedAt.Equal(other.IssuedAt)
}

// AuthorizationValue is the header value for an authenticated request.
func (t Token) AuthorizationValue() string {
	return t.TokenType + " " + t.AccessToken
}

// OAuth2 converts the token for use with golang.org/x/oauth2 transports.
func (t Token) OAuth2() *xoauth2.Token {
	return &xoauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		Expiry:       t.ExpiresAt(),
		ExpiresIn:    int64(t.ExpiresIn),
	}
}
