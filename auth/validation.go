package auth

import (
	"fmt"

	"github.com/jrsteele09/go-oauth-broker/flows"
)

// ValidateFlow checks the flow before any token request is made.
func ValidateFlow(flow flows.Flow) error {
	if flow == nil {
		return ErrMissingConfiguration
	}
	if !flow.IsValid() {
		return ErrInvalidClientCredentials
	}

	if cc, ok := flow.(flows.ClientCredentials); ok {
		for _, scope := range cc.Scope {
			if err := ValidateScope(scope); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateScope checks a single scope token against RFC 6749 section 3.3:
// printable ASCII without space, double quote or backslash. An empty scope
// is valid.
func ValidateScope(scope string) error {
	for i := 0; i < len(scope); i++ {
		c := scope[i]
		if c < 0x21 || c > 0x7e || c == '"' || c == '\\' {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidScope, scope, c)
		}
	}
	return nil
}
