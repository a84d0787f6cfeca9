package resource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type HTTPMethod string

const (
	MethodGet    HTTPMethod = http.MethodGet
	MethodPost   HTTPMethod = http.MethodPost
	MethodDelete HTTPMethod = http.MethodDelete
	MethodHead   HTTPMethod = http.MethodHead
	MethodPut    HTTPMethod = http.MethodPut
	MethodPatch  HTTPMethod = http.MethodPatch
)

// NewRequest joins baseURL and path, appends query and builds the request.
// A base URL that is not absolute yields ErrBadURL.
func NewRequest(ctx context.Context, method HTTPMethod, baseURL, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u, err := JoinURL(baseURL, path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, string(method), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	return req, nil
}

// JoinURL appends path to baseURL, cleaning duplicate slashes.
func JoinURL(baseURL, path string) (*url.URL, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute url", ErrBadURL, baseURL)
	}
	if path == "" {
		return u, nil
	}
	return u.JoinPath(path), nil
}
