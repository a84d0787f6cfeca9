package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-oauth-broker/auth"
	"github.com/jrsteele09/go-oauth-broker/codeflow"
	"github.com/jrsteele09/go-oauth-broker/flows"
	"github.com/jrsteele09/go-oauth-broker/internal/config"
	"github.com/jrsteele09/go-oauth-broker/internal/utils"
	"github.com/jrsteele09/go-oauth-broker/metrics"
	"github.com/jrsteele09/go-oauth-broker/resource"
	"github.com/jrsteele09/go-oauth-broker/tokenstore"
	"github.com/jrsteele09/go-oauth-broker/tokenstore/filestore"
	"github.com/jrsteele09/go-oauth-broker/tokenstore/memstore"
	"github.com/jrsteele09/go-oauth-broker/tokenstore/redisstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	flowClient = "client"
	flowCode   = "code"

	callbackPath = "/callback"
)

// app is the process wiring shared by every command.
type app struct {
	cfg      config.Config
	registry *prometheus.Registry
	client   *resource.Client
	store    tokenstore.Store
	auth     *auth.Authenticator

	tokenURL     string
	authorizeURL string
	closers      []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}

	m, err := metrics.New(a.registry)
	if err != nil {
		return nil, err
	}

	a.client = resource.NewClient(
		resource.WithTimeout(cfg.GetHTTPTimeout()),
		resource.WithUserAgent(cfg.GetUserAgent()),
		resource.WithDump(cfg.GetDumpRequests()),
		resource.WithMetrics(m),
		resource.WithTracing(cfg.GetTracingEnabled()),
	)

	if err := a.resolveEndpoints(ctx); err != nil {
		return nil, err
	}

	if a.store, err = a.openStore(ctx); err != nil {
		return nil, err
	}

	endpoint := auth.NewEndpoint(a.client, a.tokenURL, cfg.GetTokenPath())
	a.auth = auth.New(endpoint, tokenstore.NewManager(a.store),
		auth.WithMetrics(m),
		auth.WithFetchTimeout(cfg.GetFetchTimeout()),
	)
	return a, nil
}

// resolveEndpoints prefers explicit URLs and falls back to issuer discovery.
func (a *app) resolveEndpoints(ctx context.Context) error {
	a.tokenURL = a.cfg.GetTokenURL()
	a.authorizeURL = a.cfg.GetAuthorizeURL()
	if a.tokenURL != "" && a.authorizeURL != "" {
		return nil
	}

	issuer := a.cfg.GetIssuer()
	if issuer == "" {
		if a.tokenURL == "" {
			return errors.New("set OAUTH_TOKEN_URL or OAUTH_ISSUER")
		}
		return nil
	}

	discovery, err := auth.NewDiscoverer(a.client, auth.DefaultDiscoveryTTL).Discover(ctx, issuer)
	if err != nil {
		return err
	}
	if a.tokenURL == "" {
		a.tokenURL = discovery.TokenURL
	}
	if a.authorizeURL == "" {
		a.authorizeURL = discovery.AuthorizeURL
	}
	if !discovery.SupportsPKCE() {
		log.Warn().Str("issuer", issuer).Msg("issuer does not advertise S256 PKCE")
	}
	return nil
}

func (a *app) openStore(ctx context.Context) (tokenstore.Store, error) {
	switch kind := a.cfg.GetStoreKind(); kind {
	case config.StoreKindMemory:
		return memstore.New(), nil
	case config.StoreKindFile:
		return filestore.New(a.cfg.GetStoreDir(), a.cfg.GetStorePassphrase())
	case config.StoreKindRedis:
		store, err := redisstore.NewFromURL(ctx, a.cfg.GetRedisURL(), a.cfg.GetRedisNamespace())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown TOKEN_STORE %q", kind)
	}
}

func (a *app) redirectURI() string {
	if uri := a.cfg.GetRedirectURI(); uri != "" {
		return uri
	}
	return codeflow.LoopbackRedirectURI(a.cfg.GetCallbackPort(), callbackPath)
}

// flow is the flow a command configures the broker with. The code flow
// carries no code: it only selects the stored token, which is refreshed
// when it expires.
func (a *app) flow(kind string) (flows.Flow, error) {
	switch kind {
	case flowClient:
		return flows.ClientCredentials{
			ID:           a.cfg.GetClientID(),
			ClientSecret: a.cfg.GetClientSecret(),
			Scope:        utils.SplitScopes(a.cfg.GetScope()),
		}, nil
	case flowCode:
		return flows.AuthorizationCode{ID: a.cfg.GetClientID(), RedirectURL: a.redirectURI()}, nil
	default:
		return nil, fmt.Errorf("unknown flow %q, want %q or %q", kind, flowClient, flowCode)
	}
}

func (a *app) codeFlowManager() *codeflow.Manager {
	return codeflow.NewManager(codeflow.Configuration{
		BaseURL:     a.authorizeURL,
		ClientID:    a.cfg.GetClientID(),
		RedirectURI: a.redirectURI(),
		Scope:       a.cfg.GetScope(),
		Mode:        codeflow.PKCE,
		StateLength: a.cfg.GetStateLength(),
	}, codeflow.WithAuthCodeTimeout(a.cfg.GetAuthCodeTimeout()))
}

// serveMetrics exposes the registry until ctx ends.
func (a *app) serveMetrics(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	router := chi.NewRouter()
	router.Get("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}).ServeHTTP)
	server := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("metrics server stopped")
		}
	}()
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	log.Info().Str("addr", listener.Addr().String()).Msg("serving metrics")
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Err(err).Msg("shutdown")
		}
	}
}
