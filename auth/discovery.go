package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-oauth-broker/resource"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const DefaultDiscoveryTTL = 30 * time.Minute

// Discovery holds the endpoints advertised by an OpenID Connect issuer.
type Discovery struct {
	Issuer                        string
	AuthorizeURL                  string
	TokenURL                      string
	ScopesSupported               []string
	CodeChallengeMethodsSupported []string
}

// SupportsPKCE reports whether the issuer advertises S256 challenges.
// Issuers that advertise nothing are assumed to support it.
func (d *Discovery) SupportsPKCE() bool {
	if len(d.CodeChallengeMethodsSupported) == 0 {
		return true
	}
	for _, m := range d.CodeChallengeMethodsSupported {
		if m == "S256" {
			return true
		}
	}
	return false
}

// Endpoint builds the token endpoint of the issuer.
func (d *Discovery) Endpoint(client *resource.Client) *Endpoint {
	return NewEndpoint(client, d.TokenURL, "")
}

type discoveryEntry struct {
	discovery *Discovery
	fetchedAt time.Time
}

// Discoverer resolves issuers, caching results and sharing concurrent
// lookups of the same issuer.
type Discoverer struct {
	client *resource.Client
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]*discoveryEntry
	group singleflight.Group
}

func NewDiscoverer(client *resource.Client, ttl time.Duration) *Discoverer {
	if ttl <= 0 {
		ttl = DefaultDiscoveryTTL
	}
	return &Discoverer{
		client: client,
		ttl:    ttl,
		cache:  make(map[string]*discoveryEntry),
	}
}

func (d *Discoverer) cached(issuer string) (*Discovery, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.cache[issuer]
	if !ok || time.Since(entry.fetchedAt) >= d.ttl {
		return nil, false
	}
	return entry.discovery, true
}

// Discover resolves issuer exactly as given, since the provider metadata
// must name the same issuer. Cache entries ignore a trailing slash. The
// lookup is shared by concurrent callers and does not end when the caller
// that started it goes away; each caller still stops waiting on its ctx.
func (d *Discoverer) Discover(ctx context.Context, issuer string) (*Discovery, error) {
	key := cacheKey(issuer)
	if discovery, ok := d.cached(key); ok {
		return discovery, nil
	}

	results := d.group.DoChan(key, func() (any, error) {
		if discovery, ok := d.cached(key); ok {
			return discovery, nil
		}
		return d.discover(context.WithoutCancel(ctx), issuer)
	})
	select {
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*Discovery), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func cacheKey(issuer string) string {
	return strings.TrimSuffix(issuer, "/")
}

func (d *Discoverer) discover(ctx context.Context, issuer string) (*Discovery, error) {
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, d.client.HTTPClient()), issuer)
	if err != nil {
		return nil, fmt.Errorf("discovering %s: %w", issuer, err)
	}

	var claims struct {
		ScopesSupported               []string `json:"scopes_supported"`
		CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
	}
	if err := provider.Claims(&claims); err != nil {
		log.Warn().Err(err).Str("issuer", issuer).Msg("unable to read discovery claims")
	}

	endpoint := provider.Endpoint()
	discovery := &Discovery{
		Issuer:                        issuer,
		AuthorizeURL:                  endpoint.AuthURL,
		TokenURL:                      endpoint.TokenURL,
		ScopesSupported:               claims.ScopesSupported,
		CodeChallengeMethodsSupported: claims.CodeChallengeMethodsSupported,
	}

	d.mu.Lock()
	d.cache[cacheKey(issuer)] = &discoveryEntry{discovery: discovery, fetchedAt: time.Now()}
	d.mu.Unlock()

	log.Debug().
		Str("issuer", issuer).
		Str("authorize_url", discovery.AuthorizeURL).
		Str("token_url", discovery.TokenURL).
		Msg("discovered issuer")
	return discovery, nil
}

// Forget drops the cached discovery of issuer.
func (d *Discoverer) Forget(issuer string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cache, cacheKey(issuer))
}
