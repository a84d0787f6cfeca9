package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/jrsteele09/go-oauth-broker/oauth2"
	"github.com/jrsteele09/go-oauth-broker/token"
	"github.com/rs/zerolog/log"
)

// Builder turns an input into the request for a resource.
type Builder[In any] func(ctx context.Context, in In) (*http.Request, error)

// TokenProvider hands out a token that is valid at the time of the call.
type TokenProvider interface {
	ValidToken(ctx context.Context) (token.Token, error)
}

type authentication struct {
	provider   TokenProvider
	headerName string
}

type settings struct {
	auth *authentication
}

// Option configures a Resource built by New.
type Option func(*settings)

// WithAuthenticator makes the resource authenticated: every request carries
// "<token type> <access token>" under headerName, Authorization when empty.
func WithAuthenticator(provider TokenProvider, headerName string) Option {
	return func(s *settings) {
		if headerName == "" {
			headerName = HeaderAuthorization
		}
		s.auth = &authentication{provider: provider, headerName: headerName}
	}
}

// Resource is a remote resource addressed by In and decoded into Out.
// Out of string or []byte receives the raw body; anything else is decoded
// from JSON.
type Resource[In, Out any] struct {
	client *Client
	build  Builder[In]
	auth   *authentication
}

// New builds a resource that sends the requests produced by build through
// client.
func New[In, Out any](client *Client, build Builder[In], opts ...Option) *Resource[In, Out] {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return &Resource[In, Out]{client: client, build: build, auth: s.auth}
}

// Authenticated reports whether requests carry a token.
func (r *Resource[In, Out]) Authenticated() bool {
	return r.auth != nil
}

// Request fetches and decodes the resource.
func (r *Resource[In, Out]) Request(ctx context.Context, in In) (Out, error) {
	var out Out

	resp, err := r.execute(ctx, in, true)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("reading response body: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	switch v := any(&out).(type) {
	case *string:
		*v = string(body)
	case *[]byte:
		*v = body
	default:
		if err := json.Unmarshal(body, &out); err != nil {
			return out, fmt.Errorf("decoding response: %w", err)
		}
	}
	return out, nil
}

// Download streams the resource body to dst and returns the file positioned
// at its start. An empty dst saves under the user cache directory in
// Downloads, named after the last element of the request path. The caller
// closes the file.
func (r *Resource[In, Out]) Download(ctx context.Context, in In, dst string) (*os.File, error) {
	resp, err := r.execute(ctx, in, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if dst == "" {
		dst, err = DefaultDownloadPath(resp.Request)
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("creating download directory: %w", err)
	}

	file, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("creating download file: %w", err)
	}

	fail := func(err error) (*os.File, error) {
		file.Close()
		if rmErr := os.Remove(dst); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", dst).Msg("unable to remove partial download")
		}
		return nil, err
	}

	if _, err := io.Copy(file, resp.Body); err != nil {
		return fail(fmt.Errorf("writing download: %w", err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fail(fmt.Errorf("rewinding download: %w", err))
	}
	return file, nil
}

// DefaultDownloadPath is <user cache dir>/Downloads/<last path element>.
func DefaultDownloadPath(req *http.Request) (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locating cache directory: %w", err)
	}
	name := "download"
	if req != nil && req.URL != nil {
		if base := path.Base(req.URL.Path); base != "/" && base != "." {
			name = base
		}
	}
	return filepath.Join(cacheDir, "Downloads", name), nil
}

// execute builds, authenticates, sends and validates. On success the caller
// owns the response body.
func (r *Resource[In, Out]) execute(ctx context.Context, in In, dumpBody bool) (*http.Response, error) {
	req, err := r.build(ctx, in)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrBadURL
	}

	if r.auth != nil {
		tok, err := r.auth.provider.ValidToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set(r.auth.headerName, tok.AuthorizationValue())
	}

	resp, err := r.client.do(req, dumpBody)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		resp.Body.Close()
		return nil, err
	}
	if err := validate(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// validate closes the body of a rejected response.
func validate(resp *http.Response) error {
	if resp == nil {
		return ErrNotHTTPResponse
	}
	if resp.StatusCode == 0 {
		resp.Body.Close()
		return ErrNotHTTPResponse
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &ResponseError{
		StatusCode: resp.StatusCode,
		Message:    oauth2.ErrorMessage(body),
	}
}
