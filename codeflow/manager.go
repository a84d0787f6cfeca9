package codeflow

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-oauth-broker/flows"
	"github.com/jrsteele09/go-oauth-broker/oauth2"
	"github.com/rs/zerolog/log"
)

const DefaultAuthCodeTimeout = 15 * time.Minute

type Status int

const (
	Idle Status = iota
	AwaitingCallback
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCallback:
		return "awaiting callback"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Grant is a validated authorization response, ready to be exchanged.
type Grant struct {
	Code         string
	State        string
	CodeVerifier *string
}

// Flow builds the authorization code grant for the broker.
func (g Grant) Flow(clientID, redirectURI string) flows.AuthorizationCode {
	return flows.AuthorizationCode{
		ID:           clientID,
		Code:         g.Code,
		RedirectURL:  redirectURI,
		CodeVerifier: g.CodeVerifier,
	}
}

// Session presents the authorize URL to the user and returns the URL the
// authorization server redirected to.
type Session interface {
	Authenticate(ctx context.Context, authURL *url.URL, redirectURI string) (*url.URL, error)
}

// Manager runs the authorization code handshake for one client.
type Manager struct {
	config  Configuration
	pending PendingRepo
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	status Status
}

type Option func(*Manager)

func WithPendingRepo(repo PendingRepo) Option {
	return func(m *Manager) { m.pending = repo }
}

// WithAuthCodeTimeout sets how long an authorize URL stays redeemable.
func WithAuthCodeTimeout(timeout time.Duration) Option {
	return func(m *Manager) { m.timeout = timeout }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(config Configuration, opts ...Option) *Manager {
	if config.StateLength <= 0 {
		config.StateLength = DefaultStateLength
	}
	m := &Manager{
		config:  config,
		pending: NewInMemoryPendingRepo(),
		timeout: DefaultAuthCodeTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Configuration() Configuration {
	return m.config
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = s
}

// AuthorizeURL builds the URL to send the user to and records the pending
// authorization it starts.
func (m *Manager) AuthorizeURL(_ context.Context) (*url.URL, error) {
	u, err := url.Parse(m.config.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, ErrBadLoginURL
	}

	state, err := GenerateState(m.config.StateLength)
	if err != nil {
		return nil, err
	}

	query := u.Query()
	query.Set(oauth2.ParamClientID, m.config.ClientID)
	query.Set(oauth2.ParamRedirectURI, m.config.RedirectURI)
	query.Set(oauth2.ParamScope, m.config.Scope)
	query.Set(oauth2.ParamResponseType, string(oauth2.CodeResponseType))
	query.Set(oauth2.ParamState, state)

	pending := &PendingAuthorization{RedirectURI: m.config.RedirectURI, CreatedAt: m.now()}
	if m.config.Mode == PKCE {
		verifier := GenerateCodeVerifier()
		query.Set(oauth2.ParamCodeChallenge, CodeChallenge(verifier))
		query.Set(oauth2.ParamCodeChallengeMethod, string(oauth2.CodeMethodTypeS256))
		pending.CodeVerifier = &verifier
	}
	u.RawQuery = query.Encode()

	if err := m.pending.Upsert(state, pending); err != nil {
		return nil, fmt.Errorf("recording pending authorization: %w", err)
	}
	if purger, ok := m.pending.(interface{ Purge(time.Time) int }); ok {
		purger.Purge(m.now().Add(-m.timeout))
	}

	m.setStatus(AwaitingCallback)
	return u, nil
}

// HandleResponse validates the redirect received from the authorization
// server. A pending authorization is redeemed at most once.
func (m *Manager) HandleResponse(_ context.Context, callback *url.URL) (Grant, error) {
	grant, err := m.handleResponse(callback)
	if err != nil {
		m.setStatus(Failed)
		return Grant{}, err
	}
	m.setStatus(Completed)
	return grant, nil
}

func (m *Manager) handleResponse(callback *url.URL) (Grant, error) {
	if callback == nil || callback.RawQuery == "" {
		return Grant{}, ErrMissingQueryItems
	}
	query := callback.Query()
	if len(query) == 0 {
		return Grant{}, ErrMissingQueryItems
	}

	state := query.Get(oauth2.ParamState)
	if state == "" {
		return Grant{}, ErrMissingState
	}

	if code := query.Get(oauth2.ParamError); code != "" {
		_ = m.pending.Delete(state)
		return Grant{}, &AuthorizationError{
			Code:        code,
			Description: query.Get(oauth2.ParamErrorDescription),
			URI:         query.Get("error_uri"),
		}
	}

	code := query.Get(oauth2.ParamCode)
	if code == "" {
		return Grant{}, ErrMissingCode
	}

	pending, err := m.pending.Get(state)
	if err != nil {
		return Grant{}, ErrStateMismatch
	}
	if err := m.pending.Delete(state); err != nil {
		log.Warn().Err(err).Msg("unable to delete pending authorization")
	}
	if m.now().Sub(pending.CreatedAt) > m.timeout {
		return Grant{}, ErrExpired
	}

	return Grant{Code: code, State: state, CodeVerifier: pending.CodeVerifier}, nil
}

// SignIn runs the whole handshake through session.
func (m *Manager) SignIn(ctx context.Context, session Session) (Grant, error) {
	redirect, err := url.Parse(m.config.RedirectURI)
	if err != nil || redirect.Scheme == "" {
		return Grant{}, ErrBadRedirectURI
	}

	authURL, err := m.AuthorizeURL(ctx)
	if err != nil {
		return Grant{}, err
	}

	log.Debug().Str("client_id", m.config.ClientID).Str("mode", m.config.Mode.String()).Msg("starting sign in")
	callback, err := session.Authenticate(ctx, authURL, m.config.RedirectURI)
	if err != nil {
		m.setStatus(Failed)
		return Grant{}, fmt.Errorf("authorization session: %w", err)
	}
	return m.HandleResponse(ctx, callback)
}
