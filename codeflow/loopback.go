package codeflow

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const callbackPage = `<!DOCTYPE html>
<html><head><title>Signed in</title></head>
<body><p>You can close this window and return to the terminal.</p></body></html>`

// LoopbackSession receives the redirect on a local HTTP listener bound to
// the host and port of the redirect URI (RFC 8252 section 7.3).
type LoopbackSession struct {
	// OpenBrowser presents the authorize URL. Defaults to the system browser.
	OpenBrowser func(url string) error
	// Timeout bounds the wait for the redirect. Zero waits for ctx only.
	Timeout time.Duration
}

var _ Session = (*LoopbackSession)(nil)

func NewLoopbackSession(timeout time.Duration) *LoopbackSession {
	return &LoopbackSession{OpenBrowser: OpenBrowser, Timeout: timeout}
}

// LoopbackRedirectURI is the redirect URI served for port and path.
func LoopbackRedirectURI(port int, path string) string {
	return (&url.URL{Scheme: "http", Host: fmt.Sprintf("127.0.0.1:%d", port), Path: path}).String()
}

func (s *LoopbackSession) Authenticate(ctx context.Context, authURL *url.URL, redirectURI string) (*url.URL, error) {
	redirect, err := url.Parse(redirectURI)
	if err != nil || redirect.Scheme != "http" || redirect.Port() == "" {
		return nil, fmt.Errorf("%w: loopback needs http://<host>:<port>/<path>, got %q", ErrBadRedirectURI, redirectURI)
	}
	host := redirect.Hostname()
	if host == "localhost" {
		host = "127.0.0.1"
	}
	path := redirect.Path
	if path == "" {
		path = "/"
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(host, redirect.Port()))
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}

	results := make(chan *url.URL, 1)
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get(path, func(w http.ResponseWriter, r *http.Request) {
		received := *redirect
		received.RawQuery = r.URL.RawQuery

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(callbackPage))

		select {
		case results <- &received:
		default:
		}
	})

	server := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	open := s.OpenBrowser
	if open == nil {
		open = OpenBrowser
	}
	if err := open(authURL.String()); err != nil {
		log.Warn().Err(err).Msg("unable to open a browser")
		fmt.Fprintf(os.Stderr, "Open this URL to sign in:\n\n%s\n\n", authURL.String())
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	select {
	case received := <-results:
		return received, nil
	case err := <-serveErr:
		return nil, fmt.Errorf("callback listener: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
