package flows

import (
	"slices"

	"github.com/jrsteele09/go-oauth-broker/internal/utils"
	"github.com/jrsteele09/go-oauth-broker/oauth2"
)

// ClientCredentials is the machine-to-machine grant (RFC 6749 section 4.4).
type ClientCredentials struct {
	// ID identifies the OAuth2 client.
	// Example: "reporting-job"
	ID string

	// ClientSecret is the confidential client credential.
	// Security: Never log or expose this value
	ClientSecret string

	// Scope is the requested scope set. Order and duplicates are ignored.
	Scope []string
}

var (
	_ Flow                = ClientCredentials{}
	_ ClientSecretCarrier = ClientCredentials{}
)

func (f ClientCredentials) ClientID() string { return f.ID }

func (f ClientCredentials) GrantType() oauth2.GrantType {
	return oauth2.ClientCredentialsCodeGrant
}

func (f ClientCredentials) Secret() (string, bool) {
	return f.ClientSecret, f.ClientSecret != ""
}

// RequestBody carries grant_type, client_id and client_secret. The scope set
// is not sent; the endpoint applies the client's registered scopes.
func (f ClientCredentials) RequestBody() []byte {
	return encodeForm(f.GrantType(), map[string]string{
		oauth2.ParamClientID:     f.ID,
		oauth2.ParamClientSecret: f.ClientSecret,
	})
}

func (f ClientCredentials) QueryParameters() map[string]string { return nil }

// IsValid holds when either the client id or the secret is set.
func (f ClientCredentials) IsValid() bool {
	return f.ID != "" || f.ClientSecret != ""
}

// ScopeString is the sorted, space separated scope set.
func (f ClientCredentials) ScopeString() string {
	return utils.JoinScopes(f.scopeSet())
}

func (f ClientCredentials) HasScope(scope string) bool {
	return slices.Contains(f.Scope, scope)
}

func (f ClientCredentials) Equal(other Flow) bool {
	o, ok := other.(ClientCredentials)
	if !ok {
		return false
	}
	return f.ID == o.ID &&
		f.ClientSecret == o.ClientSecret &&
		slices.Equal(f.scopeSet(), o.scopeSet())
}

func (f ClientCredentials) scopeSet() []string {
	set := make([]string, 0, len(f.Scope))
	for _, s := range f.Scope {
		if !slices.Contains(set, s) {
			set = append(set, s)
		}
	}
	slices.Sort(set)
	return set
}
