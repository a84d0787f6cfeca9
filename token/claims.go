package token

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-oauth-broker/internal/utils"
)

// ErrNotJWT is returned by Claims for opaque access tokens.
var ErrNotJWT = errors.New("access token is not a JWT")

// Claims is an unverified view of a JWT access token. The signature is not
// checked, so nothing here may be used for authorization decisions.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	Scopes    []string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Claims peeks into the access token for diagnostics.
func (t Token) Claims() (*Claims, error) {
	if strings.Count(t.AccessToken, ".") != 2 {
		return nil, ErrNotJWT
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(t.AccessToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}
	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrNotJWT
	}

	c := &Claims{}
	c.Subject, _ = mapClaims.GetSubject()
	c.Issuer, _ = mapClaims.GetIssuer()
	if aud, err := mapClaims.GetAudience(); err == nil {
		c.Audience = aud
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = utils.Ptr(exp.Time)
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = utils.Ptr(iat.Time)
	}

	// "scope" is a space separated string (RFC 8693), "scp" is a list on some providers.
	switch scope := mapClaims["scope"].(type) {
	case string:
		c.Scopes = utils.SplitScopes(scope)
	case []any:
		c.Scopes = utils.ToStringSlice(scope)
	}
	if scp, ok := mapClaims["scp"].([]any); ok && len(c.Scopes) == 0 {
		c.Scopes = utils.ToStringSlice(scp)
	}
	return c, nil
}
