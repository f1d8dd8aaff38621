// Package httpclient provides the outbound HTTP client shared by the scraper.
// It is built once from configuration and passed explicitly to its users.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response is the subset of a response the scraper reads.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client issues GET requests with per-call headers.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// DefaultUserAgent is a desktop browser identifier; several sites reject
// default client identifiers outright.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Options configures the resty-backed client.
type Options struct {
	Timeout time.Duration
	// UserAgent defaults to DefaultUserAgent when blank.
	UserAgent string
	// MaxBodyBytes caps how much of a response body is read. A longer body
	// is cut at MaxBodyBytes+1 bytes so callers can tell it was truncated.
	// Zero reads everything.
	MaxBodyBytes int
	// Transport overrides the underlying round tripper, mainly for tests.
	Transport http.RoundTripper
}

type restyClient struct {
	client       *resty.Client
	maxBodyBytes int
}

type response struct {
	status int
	body   []byte
}

func (r *response) StatusCode() int { return r.status }
func (r *response) Body() []byte    { return r.body }

// New builds a resty client with no retries and no cookie jar, so nothing
// leaks from one site to the next.
func New(opts Options) Client {
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}

	c := resty.New().
		SetRetryCount(0).
		SetCookieJar(nil).
		SetHeader("User-Agent", ua)

	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	if opts.Transport != nil {
		c.SetTransport(opts.Transport)
	}

	return &restyClient{client: c, maxBodyBytes: max(opts.MaxBodyBytes, 0)}
}

// Get performs the request. Non-2xx statuses are not errors; callers inspect
// StatusCode. The body is streamed through the size cap rather than buffered
// whole.
func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	raw := resp.RawBody()
	if raw == nil {
		return &response{status: resp.StatusCode()}, nil
	}
	defer raw.Close()

	var src io.Reader = raw
	if c.maxBodyBytes > 0 {
		src = io.LimitReader(raw, int64(c.maxBodyBytes)+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return &response{status: resp.StatusCode(), body: body}, nil
}
