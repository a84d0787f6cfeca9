package oauth2

// ResponseType represents the OAuth 2.0 response type requested from the
// authorization endpoint.
type ResponseType string

const (
	// CodeResponseType requests an authorization code that is later exchanged
	// at the token endpoint.
	// Example: /oauth/authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 sends code_challenge = BASE64URL(SHA256(code_verifier)).
	// The only method this client generates.
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypeNone (labeled "plain") sends the verifier as the challenge.
	// Recognised for completeness, never generated.
	CodeMethodTypeNone CodeMethodType = "plain"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
// Determines what credentials are sent in the form body.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Body: code, redirect_uri, client_id, code_verifier (if PKCE)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// ClientCredentialsCodeGrant is machine-to-machine authentication.
	// Body: client_id, client_secret
	ClientCredentialsCodeGrant GrantType = "client_credentials"

	// RefreshTokenCodeGrant exchanges a refresh token for a new access token.
	// Body: client_id, refresh_token, client_secret (if confidential)
	RefreshTokenCodeGrant GrantType = "refresh_token"
)

// Form field names shared by the grant bodies and the authorize URL.
const (
	ParamGrantType           = "grant_type"
	ParamClientID            = "client_id"
	ParamClientSecret        = "client_secret"
	ParamCode                = "code"
	ParamRedirectURI         = "redirect_uri"
	ParamCodeVerifier        = "code_verifier"
	ParamRefreshToken        = "refresh_token"
	ParamScope               = "scope"
	ParamState               = "state"
	ParamResponseType        = "response_type"
	ParamCodeChallenge       = "code_challenge"
	ParamCodeChallengeMethod = "code_challenge_method"
	ParamError               = "error"
	ParamErrorDescription    = "error_description"
)

// FormContentType is the content type of every token endpoint request.
const FormContentType = "application/x-www-form-urlencoded"
