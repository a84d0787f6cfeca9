package codeflow

// Mode selects the plain authorization code flow or the PKCE extension.
type Mode int

const (
	Basic Mode = iota
	PKCE
)

func (m Mode) String() string {
	if m == PKCE {
		return "pkce"
	}
	return "basic"
}

// Configuration describes the authorize endpoint and the client using it.
type Configuration struct {
	// BaseURL is the authorize endpoint, e.g. https://auth.example/authorize.
	BaseURL     string
	ClientID    string
	RedirectURI string
	// Scope is the space separated scope list sent as-is.
	Scope       string
	Mode        Mode
	StateLength int
}
