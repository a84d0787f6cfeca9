package config

import "time"

type OAuthConfig interface {
	GetTokenURL() string
	GetTokenPath() string
	GetAuthorizeURL() string
	GetIssuer() string
	GetClientID() string
	GetClientSecret() string
	GetScope() string
	GetRedirectURI() string
	GetCallbackPort() int
	GetAuthCodeTimeout() time.Duration
	GetStateLength() int
	GetFetchTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetTokenURL is the token endpoint base URL; GetTokenPath is appended to it.
func (OAuth) GetTokenURL() string {
	return GetEnv("OAUTH_TOKEN_URL", "")
}

func (OAuth) GetTokenPath() string {
	return GetEnv("OAUTH_TOKEN_PATH", "")
}

func (OAuth) GetAuthorizeURL() string {
	return GetEnv("OAUTH_AUTHORIZE_URL", "")
}

// GetIssuer enables OIDC discovery of both endpoints when set.
func (OAuth) GetIssuer() string {
	return GetEnv("OAUTH_ISSUER", "")
}

func (OAuth) GetClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("OAUTH_CLIENT_SECRET", "")
}

func (OAuth) GetScope() string {
	return GetEnv("OAUTH_SCOPE", "")
}

func (OAuth) GetRedirectURI() string {
	return GetEnv("OAUTH_REDIRECT_URI", "")
}

func (OAuth) GetCallbackPort() int {
	return GetEnvInt("OAUTH_CALLBACK_PORT", 3000)
}

func (OAuth) GetAuthCodeTimeout() time.Duration {
	return 15 * time.Minute
}

func (OAuth) GetStateLength() int {
	return GetEnvInt("OAUTH_STATE_LENGTH", 20)
}

// GetFetchTimeout bounds a single coordinated token fetch. Zero disables it.
func (OAuth) GetFetchTimeout() time.Duration {
	return GetEnvDuration("OAUTH_FETCH_TIMEOUT", 30*time.Second)
}
