package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-oauth-broker/flows"
	"github.com/jrsteele09/go-oauth-broker/metrics"
	"github.com/jrsteele09/go-oauth-broker/token"
	"github.com/jrsteele09/go-oauth-broker/tokenstore"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle stage of an Authenticator as reported by State.
type State int

const (
	Unconfigured State = iota
	ConfiguredNoToken
	ConfiguredValidToken
	ConfiguredExpiredToken
	Refreshing
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case ConfiguredNoToken:
		return "configured, no token"
	case ConfiguredValidToken:
		return "configured, valid token"
	case ConfiguredExpiredToken:
		return "configured, expired token"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// fetchCall is a token fetch shared by every caller that arrives while it
// runs. tok and err are written once, before done is closed.
type fetchCall struct {
	done       chan struct{}
	tok        token.Token
	err        error
	waiters    int
	abandoned  bool
	cancel     context.CancelFunc
	generation uint64
}

// Authenticator hands out valid tokens for the configured flow, running at
// most one token request at a time.
type Authenticator struct {
	endpoint     TokenEndpoint
	store        *tokenstore.Manager
	metrics      *metrics.Metrics
	fetchTimeout time.Duration
	now          func() time.Time

	mu           sync.Mutex
	currentToken token.Token
	currentFlow  flows.Flow
	inFlight     *fetchCall
	// generation changes on Configure and RemoveToken; a fetch or a store
	// load started before it does not install its token.
	generation uint64

	// persistMu orders token saves with RemoveToken's deletion.
	persistMu sync.Mutex
}

// Option customises an Authenticator built by New.
type Option func(*Authenticator)

// WithMetrics records fetches, fallbacks and joins on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

// WithFetchTimeout bounds each coordinated fetch, refresh and fallback
// included. Zero means no bound.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(a *Authenticator) { a.fetchTimeout = timeout }
}

// WithClock replaces time.Now for validity checks.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// New builds an unconfigured Authenticator that requests tokens from
// endpoint and persists them in store.
func New(endpoint TokenEndpoint, store *tokenstore.Manager, opts ...Option) *Authenticator {
	a := &Authenticator{
		endpoint:     endpoint,
		store:        store,
		now:          time.Now,
		currentToken: token.Empty(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Configure switches to flow and loads the token persisted for its client.
// Configuring an equal flow does nothing. A fetch in flight finishes under
// the previous flow before the switch. The store is read without holding
// the broker lock; the loaded token is dropped if the broker moved on
// meanwhile.
func (a *Authenticator) Configure(ctx context.Context, flow flows.Flow) error {
	for {
		a.mu.Lock()
		if sameFlow(flow, a.currentFlow) {
			a.mu.Unlock()
			return nil
		}
		call := a.inFlight
		if call == nil {
			break
		}
		a.mu.Unlock()

		select {
		case <-call.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	a.currentFlow = flow
	a.currentToken = token.Empty()
	a.generation++
	generation := a.generation
	if flow == nil {
		a.mu.Unlock()
		return nil
	}
	a.store.SetPrefix(flow.ClientID())
	a.mu.Unlock()

	stored, found, err := a.store.Token(ctx)
	if err != nil {
		log.Err(err).Str("client_id", flow.ClientID()).Msg("unable to load stored token")
		return nil
	}

	if found {
		a.mu.Lock()
		if a.generation == generation && a.inFlight == nil && a.currentToken.AccessToken == "" {
			a.currentToken = stored
		} else {
			found = false
			log.Debug().Str("client_id", flow.ClientID()).Msg("broker changed while loading, stored token dropped")
		}
		a.mu.Unlock()
	}
	log.Debug().
		Str("client_id", flow.ClientID()).
		Str("grant_type", string(flow.GrantType())).
		Bool("stored_token", found).
		Msg("authenticator configured")
	return nil
}

func sameFlow(a, b flows.Flow) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

// ValidToken returns the current token when it is valid, and otherwise
// refreshes or requests one. Concurrent callers share a single request and
// all receive its result. Cancelling ctx abandons the wait; the request is
// only cancelled once every waiter has gone.
func (a *Authenticator) ValidToken(ctx context.Context) (token.Token, error) {
	for {
		a.mu.Lock()
		call := a.inFlight
		if call != nil && call.abandoned {
			a.mu.Unlock()
			select {
			case <-call.done:
				continue
			case <-ctx.Done():
				return token.Token{}, ctx.Err()
			}
		}

		if call == nil && a.currentFlow != nil && a.currentToken.IsValidAt(a.now()) {
			tok, grant := a.currentToken, string(a.currentFlow.GrantType())
			a.mu.Unlock()
			a.metrics.TokenFetched(grant, metrics.OutcomeCached)
			return tok, nil
		}

		if call != nil {
			call.waiters++
			a.metrics.JoinedInFlight()
		} else {
			call = a.startFetch(ctx)
		}
		a.mu.Unlock()

		select {
		case <-call.done:
			return call.tok, call.err
		case <-ctx.Done():
			a.leave(call)
			return token.Token{}, ctx.Err()
		}
	}
}

// startFetch publishes a new fetch as in flight. Called with mu held.
func (a *Authenticator) startFetch(ctx context.Context) *fetchCall {
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if a.fetchTimeout > 0 {
		var cancelTimeout context.CancelFunc
		fetchCtx, cancelTimeout = context.WithTimeout(fetchCtx, a.fetchTimeout)
		parentCancel := cancel
		cancel = func() {
			cancelTimeout()
			parentCancel()
		}
	}

	call := &fetchCall{
		done:       make(chan struct{}),
		waiters:    1,
		cancel:     cancel,
		generation: a.generation,
	}
	a.inFlight = call
	go a.fetch(fetchCtx, call)
	return call
}

func (a *Authenticator) leave(call *fetchCall) {
	a.mu.Lock()
	defer a.mu.Unlock()

	call.waiters--
	if call.waiters == 0 && a.inFlight == call {
		call.abandoned = true
		call.cancel()
	}
}

func (a *Authenticator) fetch(ctx context.Context, call *fetchCall) {
	defer call.cancel()

	tok, fetched, err := a.resolve(ctx)
	if err == nil && fetched {
		a.install(ctx, call, tok)
	}

	a.mu.Lock()
	call.tok, call.err = tok, err
	a.inFlight = nil
	a.mu.Unlock()
	close(call.done)
}

// install makes tok current and persists it, unless the token was removed
// while the fetch ran. A failed save is logged; the in-memory token stays.
// persistMu is held across the check and the save so that a concurrent
// RemoveToken deletes after the save, never before it.
func (a *Authenticator) install(ctx context.Context, call *fetchCall, tok token.Token) {
	a.persistMu.Lock()
	defer a.persistMu.Unlock()

	a.mu.Lock()
	if call.generation != a.generation {
		a.mu.Unlock()
		log.Debug().Msg("token removed during fetch, not installing the new one")
		return
	}
	a.currentToken = tok
	a.mu.Unlock()

	if err := a.store.SaveToken(context.WithoutCancel(ctx), tok); err != nil {
		log.Err(err).Str("prefix", a.store.Prefix()).Msg("unable to persist token")
	}
}

// resolve runs inside a fetch. fetched is false when the current token was
// still valid and no request was made.
func (a *Authenticator) resolve(ctx context.Context) (tok token.Token, fetched bool, err error) {
	a.mu.Lock()
	flow := a.currentFlow
	current := a.currentToken
	a.mu.Unlock()

	if err := ValidateFlow(flow); err != nil {
		return token.Token{}, false, err
	}
	if current.IsValidAt(a.now()) {
		a.metrics.TokenFetched(string(flow.GrantType()), metrics.OutcomeCached)
		return current, false, nil
	}

	if current.HasRefreshToken() {
		refresh := refreshFlow(flow, current.RefreshToken)
		tok, err := a.request(ctx, refresh)
		if err == nil {
			if !tok.HasRefreshToken() {
				tok = tok.WithRefreshToken(current.RefreshToken)
			}
			return tok, true, nil
		}
		log.Warn().Err(err).Str("client_id", flow.ClientID()).Msg("refresh failed, requesting a new grant")
		a.metrics.RefreshFellBack()
	}

	tok, err = a.request(ctx, flow)
	if err != nil {
		return token.Token{}, false, err
	}
	return tok, true, nil
}

func (a *Authenticator) request(ctx context.Context, flow flows.Flow) (token.Token, error) {
	grant := string(flow.GrantType())
	start := time.Now()
	tok, err := a.endpoint.Request(ctx, flow)
	a.metrics.ObserveEndpoint(grant, time.Since(start).Seconds())
	if err != nil {
		a.metrics.TokenFetched(grant, metrics.OutcomeError)
		return token.Token{}, err
	}
	a.metrics.TokenFetched(grant, metrics.OutcomeSuccess)
	return tok, nil
}

// refreshFlow builds the refresh grant for the client of flow, forwarding
// its secret when it has one.
func refreshFlow(flow flows.Flow, refreshToken string) flows.RefreshToken {
	var secret string
	if carrier, ok := flow.(flows.ClientSecretCarrier); ok {
		secret, _ = carrier.Secret()
	}
	return flows.NewRefreshToken(flow.ClientID(), refreshToken, secret)
}

// RemoveToken forgets the token and the flow and deletes the stored token.
// A fetch in flight is not cancelled, but its token is discarded.
func (a *Authenticator) RemoveToken(ctx context.Context) error {
	a.mu.Lock()
	a.currentToken = token.Empty()
	a.currentFlow = nil
	a.generation++
	a.mu.Unlock()

	a.persistMu.Lock()
	defer a.persistMu.Unlock()
	if a.store.Prefix() == "" {
		return nil
	}
	return a.store.RemoveToken(ctx)
}

// TokenStore is the persistence manager the broker writes to.
func (a *Authenticator) TokenStore() *tokenstore.Manager {
	return a.store
}

// Configuration is the current flow, nil when unconfigured.
func (a *Authenticator) Configuration() flows.Flow {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentFlow
}

// CurrentToken is the token held now, valid or not. It never fetches.
func (a *Authenticator) CurrentToken() token.Token {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentToken
}

// State reports the broker's lifecycle stage without fetching.
func (a *Authenticator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case a.currentFlow == nil:
		return Unconfigured
	case a.inFlight != nil:
		return Refreshing
	case a.currentToken.AccessToken == "":
		return ConfiguredNoToken
	case a.currentToken.IsValidAt(a.now()):
		return ConfiguredValidToken
	default:
		return ConfiguredExpiredToken
	}
}
