package flows

import (
	"net/url"

	"github.com/jrsteele09/go-oauth-broker/oauth2"
)

// Flow is a grant the broker can present to a token endpoint.
// Implementations are plain values; Equal decides whether re-configuring the
// broker with a flow is a no-op.
type Flow interface {
	// ClientID scopes token persistence and is sent with every grant.
	ClientID() string

	// GrantType is the grant_type form value.
	GrantType() oauth2.GrantType

	// RequestBody is the application/x-www-form-urlencoded token request body.
	RequestBody() []byte

	// QueryParameters are extra query items for the token request, nil when none.
	QueryParameters() map[string]string

	// IsValid reports whether the flow carries enough to attempt the grant.
	IsValid() bool

	// Equal is structural equality. A flow of another kind, or nil, is never equal.
	Equal(other Flow) bool
}

// ClientSecretCarrier is implemented by flows that hold a client secret the
// broker can forward on a refresh grant.
type ClientSecretCarrier interface {
	Secret() (string, bool)
}

func encodeForm(grant oauth2.GrantType, fields map[string]string) []byte {
	values := url.Values{}
	values.Set(oauth2.ParamGrantType, string(grant))
	for k, v := range fields {
		values.Set(k, v)
	}
	return []byte(values.Encode())
}
