package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-oauth-broker/auth"
	"github.com/jrsteele09/go-oauth-broker/flows"
	"github.com/jrsteele09/go-oauth-broker/metrics"
	"github.com/jrsteele09/go-oauth-broker/resource"
	"github.com/jrsteele09/go-oauth-broker/token"
	"github.com/jrsteele09/go-oauth-broker/tokenstore"
	"github.com/jrsteele09/go-oauth-broker/tokenstore/memstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	testClientID     = "test-client-1"
	testClientSecret = "test-secret-1"
	testTokenPath    = "/oauth/token"
)

type grantHandler func(w http.ResponseWriter, r *http.Request, form url.Values)

// testFixture holds a token server and a broker pointed at it.
type testFixture struct {
	server  *httptest.Server
	store   *memstore.MemStore
	manager *tokenstore.Manager
	auth    *auth.Authenticator
	reg     *prometheus.Registry

	calls atomic.Int32
	mu    sync.Mutex
	forms []url.Values

	handler grantHandler
}

func writeToken(w http.ResponseWriter, accessToken string, refreshToken string) {
	body := map[string]any{"access_token": accessToken, "expires_in": 3600, "token_type": "bearer"}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// setupTestFixture creates a broker whose endpoint answers every grant with
// access token "abc" unless a handler is set.
func setupTestFixture(t *testing.T, opts ...auth.Option) *testFixture {
	t.Helper()

	f := &testFixture{store: memstore.New(), reg: prometheus.NewRegistry()}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		require.Equal(t, testTokenPath, r.URL.Path)
		require.NoError(t, r.ParseForm())

		f.mu.Lock()
		f.forms = append(f.forms, r.PostForm)
		handler := f.handler
		f.mu.Unlock()

		if handler != nil {
			handler(w, r, r.PostForm)
			return
		}
		writeToken(w, "abc", "")
	}))
	t.Cleanup(f.server.Close)

	m, err := metrics.New(f.reg)
	require.NoError(t, err)

	f.manager = tokenstore.NewManager(f.store)
	endpoint := auth.NewEndpoint(resource.NewClient(), f.server.URL, testTokenPath)
	f.auth = auth.New(endpoint, f.manager, append([]auth.Option{auth.WithMetrics(m)}, opts...)...)
	return f
}

func (f *testFixture) setHandler(h grantHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

func (f *testFixture) grantTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	grants := make([]string, 0, len(f.forms))
	for _, form := range f.forms {
		grants = append(grants, form.Get("grant_type"))
	}
	return grants
}

func clientCredentials() flows.ClientCredentials {
	return flows.ClientCredentials{ID: testClientID, ClientSecret: testClientSecret}
}

func TestValidToken_NewGrant(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.Equal(t, auth.Unconfigured, f.auth.State())

	require.NoError(t, f.auth.Configure(ctx, clientCredentials()))
	require.Equal(t, auth.ConfiguredNoToken, f.auth.State())

	before := time.Now()
	tok, err := f.auth.ValidToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc", tok.AccessToken)
	require.True(t, tok.IsValid())
	require.False(t, tok.IssuedAt.Before(before))
	require.Equal(t, auth.ConfiguredValidToken, f.auth.State())

	t.Run("valid token is served without a request", func(t *testing.T) {
		again, err := f.auth.ValidToken(ctx)
		require.NoError(t, err)
		require.True(t, tok.Equal(again))
		require.Equal(t, int32(1), f.calls.Load())
	})

	t.Run("token is persisted under the client id", func(t *testing.T) {
		require.Equal(t, testClientID, f.manager.Prefix())
		stored, found, err := f.manager.Token(ctx)
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "abc", stored.AccessToken)
	})

	t.Run("grant body", func(t *testing.T) {
		f.mu.Lock()
		form := f.forms[0]
		f.mu.Unlock()
		require.Equal(t, "client_credentials", form.Get("grant_type"))
		require.Equal(t, testClientID, form.Get("client_id"))
		require.Equal(t, testClientSecret, form.Get("client_secret"))
	})
}

func TestValidToken_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unconfigured", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.auth.ValidToken(ctx)
		require.ErrorIs(t, err, auth.ErrMissingConfiguration)
		require.Zero(t, f.calls.Load())
	})

	t.Run("empty client credentials", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.auth.Configure(ctx, flows.ClientCredentials{ID: "", ClientSecret: ""}))
		_, err := f.auth.ValidToken(ctx)
		require.ErrorIs(t, err, auth.ErrInvalidClientCredentials)
		require.Zero(t, f.calls.Load())
	})

	t.Run("invalid scope", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.auth.Configure(ctx, flows.ClientCredentials{ID: "svc", Scope: []string{"bad scope"}}))
		_, err := f.auth.ValidToken(ctx)
		require.ErrorIs(t, err, auth.ErrInvalidScope)
	})
}

func TestValidToken_SingleFlight(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	release := make(chan struct{})
	f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
		<-release
		writeToken(w, "shared", "")
	})
	require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

	const callers = 25
	results := make([]token.Token, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			tok, err := f.auth.ValidToken(ctx)
			results[i] = tok
			return err
		})
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	require.NoError(t, g.Wait())

	require.Equal(t, int32(1), f.calls.Load())
	for _, tok := range results {
		require.True(t, results[0].Equal(tok))
		require.Equal(t, "shared", tok.AccessToken)
	}
}

func TestValidToken_SharedError(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	release := make(chan struct{})
	f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
		<-release
		writeError(w, http.StatusServiceUnavailable, "down")
	})
	require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

	const callers = 10
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.auth.ValidToken(ctx)
		}()
	}
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), f.calls.Load())
	for _, err := range errs {
		require.Same(t, errs[0], err)
		var respErr *resource.ResponseError
		require.ErrorAs(t, err, &respErr)
		require.Equal(t, 503, respErr.StatusCode)
		require.Equal(t, "down", respErr.Message)
	}

	t.Run("next call starts a new fetch", func(t *testing.T) {
		f.setHandler(nil)
		tok, err := f.auth.ValidToken(ctx)
		require.NoError(t, err)
		require.Equal(t, "abc", tok.AccessToken)
		require.Equal(t, int32(2), f.calls.Load())
	})
}

func seedExpiredToken(t *testing.T, f *testFixture, refreshToken string) {
	t.Helper()
	m := tokenstore.NewManager(f.store)
	m.SetPrefix(testClientID)
	expired := token.Token{
		AccessToken:  "old",
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    60,
		IssuedAt:     time.Now().Add(-time.Hour).Truncate(time.Microsecond),
	}
	require.NoError(t, m.SaveToken(context.Background(), expired))
}

func TestValidToken_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh keeps the previous refresh token", func(t *testing.T) {
		f := setupTestFixture(t)
		seedExpiredToken(t, f, "r-old")
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			require.Equal(t, "refresh_token", form.Get("grant_type"))
			require.Equal(t, "r-old", form.Get("refresh_token"))
			require.Equal(t, testClientID, form.Get("client_id"))
			require.Equal(t, testClientSecret, form.Get("client_secret"))
			writeToken(w, "refreshed", "")
		})

		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))
		require.Equal(t, auth.ConfiguredExpiredToken, f.auth.State())

		tok, err := f.auth.ValidToken(ctx)
		require.NoError(t, err)
		require.Equal(t, "refreshed", tok.AccessToken)
		require.Equal(t, "r-old", tok.RefreshToken)
		require.Equal(t, int32(1), f.calls.Load())
	})

	t.Run("rotated refresh token replaces the old one", func(t *testing.T) {
		f := setupTestFixture(t)
		seedExpiredToken(t, f, "r-old")
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			writeToken(w, "refreshed", "r-new")
		})
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

		tok, err := f.auth.ValidToken(ctx)
		require.NoError(t, err)
		require.Equal(t, "r-new", tok.RefreshToken)
	})

	t.Run("rejected refresh falls back to a new grant", func(t *testing.T) {
		f := setupTestFixture(t)
		seedExpiredToken(t, f, "r-old")
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			if form.Get("grant_type") == "refresh_token" {
				writeError(w, http.StatusBadRequest, "invalid_grant")
				return
			}
			writeToken(w, "fresh", "")
		})
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

		tok, err := f.auth.ValidToken(ctx)
		require.NoError(t, err)
		require.Equal(t, "fresh", tok.AccessToken)
		require.Equal(t, int32(2), f.calls.Load())
		require.Equal(t, []string{"refresh_token", "client_credentials"}, f.grantTypes())

		expected := `
# HELP oauth_broker_refresh_fallbacks_total Refresh grants that failed and fell back to a new grant.
# TYPE oauth_broker_refresh_fallbacks_total counter
oauth_broker_refresh_fallbacks_total 1
`
		require.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "oauth_broker_refresh_fallbacks_total"))
	})

	t.Run("both attempts failing returns the new grant error", func(t *testing.T) {
		f := setupTestFixture(t)
		seedExpiredToken(t, f, "r-old")
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			writeError(w, http.StatusUnauthorized, form.Get("grant_type"))
		})
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

		_, err := f.auth.ValidToken(ctx)
		var respErr *resource.ResponseError
		require.ErrorAs(t, err, &respErr)
		require.Equal(t, "client_credentials", respErr.Message)
		require.Equal(t, int32(2), f.calls.Load())
	})
}

func TestConfigure(t *testing.T) {
	ctx := context.Background()

	t.Run("equal flow is a no-op", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))
		tok, err := f.auth.ValidToken(ctx)
		require.NoError(t, err)

		f.manager.SetPrefix("sentinel")
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))
		require.Equal(t, "sentinel", f.manager.Prefix())
		require.True(t, tok.Equal(f.auth.CurrentToken()))
	})

	t.Run("different flow switches prefix and resets", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))
		_, err := f.auth.ValidToken(ctx)
		require.NoError(t, err)

		other := flows.ClientCredentials{ID: "other-client", ClientSecret: "x"}
		require.NoError(t, f.auth.Configure(ctx, other))
		require.Equal(t, "other-client", f.manager.Prefix())
		require.Equal(t, auth.ConfiguredNoToken, f.auth.State())
		require.True(t, other.Equal(f.auth.Configuration()))

		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))
		require.Equal(t, auth.ConfiguredValidToken, f.auth.State())
		require.Equal(t, "abc", f.auth.CurrentToken().AccessToken)
	})

	t.Run("waits for the fetch in flight", func(t *testing.T) {
		f := setupTestFixture(t)
		release := make(chan struct{})
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			<-release
			writeToken(w, form.Get("client_id"), "")
		})
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

		fetched := make(chan token.Token, 1)
		go func() {
			tok, _ := f.auth.ValidToken(ctx)
			fetched <- tok
		}()
		require.Eventually(t, func() bool { return f.auth.State() == auth.Refreshing }, time.Second, 5*time.Millisecond)

		configured := make(chan struct{})
		go func() {
			_ = f.auth.Configure(ctx, flows.ClientCredentials{ID: "other-client", ClientSecret: "x"})
			close(configured)
		}()

		select {
		case <-configured:
			t.Fatal("configure did not wait for the fetch")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		<-configured
		require.Equal(t, testClientID, (<-fetched).AccessToken)
		require.Equal(t, "other-client", f.auth.Configuration().ClientID())
	})

	t.Run("cancelled wait", func(t *testing.T) {
		f := setupTestFixture(t)
		release := make(chan struct{})
		defer close(release)
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			<-release
			writeToken(w, "abc", "")
		})
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))
		go func() { _, _ = f.auth.ValidToken(ctx) }()
		require.Eventually(t, func() bool { return f.auth.State() == auth.Refreshing }, time.Second, 5*time.Millisecond)

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		err := f.auth.Configure(cctx, flows.ClientCredentials{ID: "other"})
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, testClientID, f.auth.Configuration().ClientID())
	})
}

func TestValidToken_Cancellation(t *testing.T) {
	ctx := context.Background()

	t.Run("one waiter leaving does not cancel the fetch", func(t *testing.T) {
		f := setupTestFixture(t)
		release := make(chan struct{})
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			<-release
			writeToken(w, "abc", "")
		})
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

		staying := make(chan error, 1)
		go func() {
			_, err := f.auth.ValidToken(ctx)
			staying <- err
		}()
		require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

		cctx, cancel := context.WithCancel(ctx)
		leaving := make(chan error, 1)
		go func() {
			_, err := f.auth.ValidToken(cctx)
			leaving <- err
		}()
		cancel()
		require.ErrorIs(t, <-leaving, context.Canceled)

		close(release)
		require.NoError(t, <-staying)
		require.Equal(t, int32(1), f.calls.Load())
	})

	t.Run("last waiter leaving cancels the fetch", func(t *testing.T) {
		f := setupTestFixture(t)
		cancelled := make(chan struct{})
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			<-r.Context().Done()
			close(cancelled)
		})
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

		cctx, cancel := context.WithCancel(ctx)
		result := make(chan error, 1)
		go func() {
			_, err := f.auth.ValidToken(cctx)
			result <- err
		}()
		require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
		cancel()
		require.ErrorIs(t, <-result, context.Canceled)

		select {
		case <-cancelled:
		case <-time.After(2 * time.Second):
			t.Fatal("token request was not cancelled")
		}

		f.setHandler(nil)
		tok, err := f.auth.ValidToken(ctx)
		require.NoError(t, err)
		require.Equal(t, "abc", tok.AccessToken)
	})

	t.Run("fetch timeout", func(t *testing.T) {
		f := setupTestFixture(t, auth.WithFetchTimeout(30*time.Millisecond))
		f.setHandler(func(w http.ResponseWriter, r *http.Request, form url.Values) {
			<-r.Context().Done()
		})
		require.NoError(t, f.auth.Configure(ctx, clientCredentials()))

		_, err := f.auth.ValidToken(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRemoveToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.auth.RemoveToken(ctx))

	require.NoError(t, f.auth.Configure(ctx, clientCredentials()))
	_, err := f.auth.ValidToken(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, f.store.Keys())

	require.NoError(t, f.auth.RemoveToken(ctx))
	require.Empty(t, f.store.Keys())
	require.Nil(t, f.auth.Configuration())
	require.Equal(t, auth.Unconfigured, f.auth.State())
	require.False(t, f.auth.CurrentToken().IsValid())

	_, err = f.auth.ValidToken(ctx)
	require.ErrorIs(t, err, auth.ErrMissingConfiguration)
}

type brokenStore struct{ *memstore.MemStore }

func (brokenStore) Set(context.Context, string, []byte) error {
	return errors.New("keychain locked")
}

func TestValidToken_PersistFailureIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, "abc", "")
	}))
	defer server.Close()

	manager := tokenstore.NewManager(brokenStore{memstore.New()})
	broker := auth.New(auth.NewEndpoint(resource.NewClient(), server.URL, ""), manager)
	ctx := context.Background()
	require.NoError(t, broker.Configure(ctx, clientCredentials()))

	tok, err := broker.ValidToken(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc", tok.AccessToken)
	require.Equal(t, "abc", broker.CurrentToken().AccessToken)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "refreshing", auth.Refreshing.String())
	require.Equal(t, "unconfigured", auth.Unconfigured.String())
}

// gatedStore blocks token writes and reads until the test lets them through.
type gatedStore struct {
	*memstore.MemStore

	gateSets atomic.Bool
	gateGets atomic.Bool
	entered  chan struct{}
	once     sync.Once
	release  chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemStore: memstore.New(),
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (s *gatedStore) wait(key string) {
	if !strings.HasSuffix(key, "clientToken") {
		return
	}
	s.once.Do(func() { close(s.entered) })
	<-s.release
}

func (s *gatedStore) Set(ctx context.Context, key string, value []byte) error {
	if s.gateSets.Load() {
		s.wait(key)
	}
	return s.MemStore.Set(ctx, key, value)
}

func (s *gatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.gateGets.Load() {
		s.wait(key)
	}
	return s.MemStore.Get(ctx, key)
}

func newGatedBroker(t *testing.T, store *gatedStore) (*auth.Authenticator, *tokenstore.Manager) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, "fresh", "")
	}))
	t.Cleanup(server.Close)

	manager := tokenstore.NewManager(store)
	return auth.New(auth.NewEndpoint(resource.NewClient(), server.URL, ""), manager), manager
}

func TestRemoveToken_DuringSave(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	store.gateSets.Store(true)
	broker, _ := newGatedBroker(t, store)
	require.NoError(t, broker.Configure(ctx, clientCredentials()))

	fetched := make(chan token.Token, 1)
	go func() {
		tok, _ := broker.ValidToken(ctx)
		fetched <- tok
	}()
	<-store.entered

	removed := make(chan error, 1)
	go func() { removed <- broker.RemoveToken(ctx) }()
	require.Eventually(t, func() bool { return broker.State() == auth.Unconfigured }, time.Second, 5*time.Millisecond)

	select {
	case <-removed:
		t.Fatal("RemoveToken returned before the pending save finished")
	case <-time.After(30 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-removed)
	require.Equal(t, "fresh", (<-fetched).AccessToken)
	require.Empty(t, store.Keys())

	require.NoError(t, broker.Configure(ctx, clientCredentials()))
	require.Equal(t, auth.ConfiguredNoToken, broker.State())
	require.Empty(t, broker.CurrentToken().AccessToken)
}

func TestConfigure_LoadsOutsideTheLock(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, manager *tokenstore.Manager) {
		t.Helper()
		manager.SetPrefix(testClientID)
		stored := token.Token{
			AccessToken: "stored",
			TokenType:   token.DefaultType,
			ExpiresIn:   3600,
			IssuedAt:    time.Now().Truncate(time.Microsecond),
		}
		require.NoError(t, manager.SaveToken(ctx, stored))
	}

	t.Run("broker stays responsive during a slow load", func(t *testing.T) {
		store := newGatedStore()
		broker, manager := newGatedBroker(t, store)
		seed(t, manager)
		store.gateGets.Store(true)

		configured := make(chan error, 1)
		go func() { configured <- broker.Configure(ctx, clientCredentials()) }()
		<-store.entered

		require.Equal(t, auth.ConfiguredNoToken, broker.State())
		require.Empty(t, broker.CurrentToken().AccessToken)
		require.Equal(t, testClientID, broker.Configuration().ClientID())

		close(store.release)
		require.NoError(t, <-configured)
		require.Equal(t, auth.ConfiguredValidToken, broker.State())
		require.Equal(t, "stored", broker.CurrentToken().AccessToken)
	})

	t.Run("load overtaken by another Configure is dropped", func(t *testing.T) {
		store := newGatedStore()
		broker, manager := newGatedBroker(t, store)
		seed(t, manager)
		store.gateGets.Store(true)

		first := make(chan error, 1)
		go func() { first <- broker.Configure(ctx, clientCredentials()) }()
		<-store.entered

		other := flows.ClientCredentials{ID: "other-client", ClientSecret: "x"}
		second := make(chan error, 1)
		go func() { second <- broker.Configure(ctx, other) }()
		require.Eventually(t, func() bool {
			return broker.Configuration().ClientID() == "other-client"
		}, time.Second, 5*time.Millisecond)

		close(store.release)
		require.NoError(t, <-first)
		require.NoError(t, <-second)
		require.Equal(t, auth.ConfiguredNoToken, broker.State())
		require.Empty(t, broker.CurrentToken().AccessToken)
	})
}
