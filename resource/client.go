package resource

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-oauth-broker/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderUserAgent     = "User-Agent"
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderAccept        = "Accept"

	ContentTypeJSON = "application/json"
)

// Client executes pipeline requests. It is built explicitly and passed to
// every resource; there is no shared default.
type Client struct {
	httpClient *http.Client
	userAgent  string
	dump       bool
	metrics    *metrics.Metrics
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTimeout sets the request timeout on a copy of the http client, so a
// client passed to WithHTTPClient is left untouched.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		withTimeout := *c.httpClient
		withTimeout.Timeout = timeout
		c.httpClient = &withTimeout
	}
}

func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) { c.userAgent = userAgent }
}

// WithDump logs every request and response at debug level.
func WithDump(dump bool) ClientOption {
	return func(c *Client) { c.dump = dump }
}

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// WithTracing wraps the transport with OpenTelemetry instrumentation.
// Apply it after WithHTTPClient.
func WithTracing(enabled bool) ClientOption {
	return func(c *Client) {
		if !enabled {
			return
		}
		base := c.httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		wrapped := *c.httpClient
		wrapped.Transport = otelhttp.NewTransport(base)
		c.httpClient = &wrapped
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient is the underlying client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// do sends req, adding the user agent and a request id when absent. When
// dumpBody is false a dump leaves the response body untouched.
func (c *Client) do(req *http.Request, dumpBody bool) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get(HeaderUserAgent) == "" {
		req.Header.Set(HeaderUserAgent, c.userAgent)
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}

	if c.dump {
		dumpRequest(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RequestDone(req.Method, 0)
		return nil, err
	}
	c.metrics.RequestDone(req.Method, resp.StatusCode)

	if c.dump {
		dumpResponse(resp, dumpBody)
	}
	return resp, nil
}
