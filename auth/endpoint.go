package auth

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/go-oauth-broker/flows"
	"github.com/jrsteele09/go-oauth-broker/oauth2"
	"github.com/jrsteele09/go-oauth-broker/resource"
	"github.com/jrsteele09/go-oauth-broker/token"
)

// TokenEndpoint exchanges a flow for a token.
type TokenEndpoint interface {
	Request(ctx context.Context, flow flows.Flow) (token.Token, error)
}

// Endpoint is a token endpoint reached through the resource pipeline.
type Endpoint struct {
	baseURL  string
	path     string
	resource *resource.Resource[flows.Flow, []byte]
}

var _ TokenEndpoint = (*Endpoint)(nil)

// NewEndpoint posts grants to baseURL + path.
func NewEndpoint(client *resource.Client, baseURL, path string) *Endpoint {
	e := &Endpoint{baseURL: baseURL, path: path}
	e.resource = resource.New[flows.Flow, []byte](client, e.build)
	return e
}

// URL is the full token endpoint address.
func (e *Endpoint) URL() string {
	u, err := resource.JoinURL(e.baseURL, e.path)
	if err != nil {
		return e.baseURL + e.path
	}
	return u.String()
}

func (e *Endpoint) build(ctx context.Context, flow flows.Flow) (*http.Request, error) {
	query := url.Values{}
	for k, v := range flow.QueryParameters() {
		query.Set(k, v)
	}

	req, err := resource.NewRequest(ctx, resource.MethodPost, e.baseURL, e.path, query, bytes.NewReader(flow.RequestBody()))
	if err != nil {
		return nil, err
	}
	req.Header.Set(resource.HeaderContentType, oauth2.FormContentType)
	req.Header.Set(resource.HeaderAccept, resource.ContentTypeJSON)
	return req, nil
}

// Request performs the grant. The token is stamped with the time the
// response arrived.
func (e *Endpoint) Request(ctx context.Context, flow flows.Flow) (token.Token, error) {
	body, err := e.resource.Request(ctx, flow)
	if err != nil {
		return token.Token{}, fmt.Errorf("%s grant: %w", flow.GrantType(), err)
	}
	receivedAt := time.Now()

	resp, err := oauth2.DecodeTokenResponse(body)
	if err != nil {
		return token.Token{}, fmt.Errorf("%s grant: %w", flow.GrantType(), err)
	}
	return token.FromResponse(resp, receivedAt), nil
}
