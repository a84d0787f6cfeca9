package auth

import (
	"context"
	"net/http"

	xoauth2 "golang.org/x/oauth2"
)

type tokenSource struct {
	ctx  context.Context
	auth *Authenticator
}

func (s tokenSource) Token() (*xoauth2.Token, error) {
	tok, err := s.auth.ValidToken(s.ctx)
	if err != nil {
		return nil, err
	}
	return tok.OAuth2(), nil
}

// TokenSource adapts the authenticator to golang.org/x/oauth2. Every call
// goes through ValidToken, so the source needs no caching wrapper.
func (a *Authenticator) TokenSource(ctx context.Context) xoauth2.TokenSource {
	return tokenSource{ctx: ctx, auth: a}
}

// HTTPClient returns a client that authorizes every request with a valid
// token. base supplies the transport and timeout; nil uses the defaults.
func (a *Authenticator) HTTPClient(ctx context.Context, base *http.Client) *http.Client {
	client := &http.Client{}
	var transport http.RoundTripper
	if base != nil {
		*client = *base
		transport = base.Transport
	}
	client.Transport = &xoauth2.Transport{
		Source: a.TokenSource(ctx),
		Base:   transport,
	}
	return client
}
