package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"marketsync/internal/endpoint"
)

//go:generate mockgen -package=fetch_test -destination=mock_http_client_test.go -source=client.go HTTPClient

// HTTPClient is the transport seam; *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrMissingCredentials aborts a cycle before any request is attempted.
var ErrMissingCredentials = errors.New("provider credentials not configured")

const defaultTimeout = 15 * time.Second

// Client issues requests against the market-data provider. The base URL
// and API key are the static credential pair; everything else about a
// request comes from the endpoint descriptor.
type Client struct {
	base    string
	host    string
	apiKey  string
	http    HTTPClient
	headers http.Header
	timeout time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(hc HTTPClient) ClientOption {
	return func(c *Client) { c.http = hc }
}

func WithHeader(h http.Header) ClientOption {
	return func(c *Client) {
		for k, vs := range h {
			for _, v := range vs {
				c.headers.Add(k, v)
			}
		}
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" || apiKey == "" {
		return nil, ErrMissingCredentials
	}
	c := &Client{
		base:   baseURL,
		host:   hostOf(baseURL),
		apiKey: apiKey,
		http:   http.DefaultClient,
		headers: http.Header{
			"Accept":     []string{"application/json, text/plain, */*"},
			"User-Agent": []string{"marketsync/1.0"},
		},
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Get fetches one endpoint and decodes the body. A non-200 status, a
// transport error, a timeout, or an undecodable body all come back as
// errors attributable to this endpoint only; the per-request timeout never
// cancels sibling requests. On a decode failure the raw text is re-tried
// once after trimming byte-order marks and surrounding noise.
func (c *Client) Get(ctx context.Context, d endpoint.Descriptor) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := d.URL(c.base, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", d.Name, err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", d.Name, c.maskErr(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body for %s: %w", d.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d (%s)", d.Name, resp.StatusCode, c.snippet(body))
	}

	var data any
	if err := json.Unmarshal(body, &data); err == nil {
		return data, nil
	}
	// Best-effort fallback: some endpoints serve JSON with a BOM or under a
	// text/plain content type with stray whitespace.
	cleaned := bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	if err := json.Unmarshal(cleaned, &data); err != nil {
		return nil, fmt.Errorf("decode %s: %w (%s)", d.Name, err, c.snippet(body))
	}
	return data, nil
}

var credentialRe = regexp.MustCompile(`(?i)(key|token)=[^&\s"]+`)

// mask hides credential query parameters and the provider host before a
// string may reach logs or error messages.
func (c *Client) mask(s string) string {
	s = credentialRe.ReplaceAllString(s, "$1=********")
	if c.host != "" {
		s = strings.ReplaceAll(s, c.host, "********")
	}
	return s
}

func (c *Client) maskErr(err error) error {
	masked := c.mask(err.Error())
	if masked == err.Error() {
		return err
	}
	return errors.New(masked)
}

func (c *Client) snippet(body []byte) string {
	s := c.mask(strings.TrimSpace(string(body)))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// hostOf extracts the host portion of the configured base URL. A base that
// does not parse falls back to the whole string so it still gets redacted.
func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(baseURL, "/")
	}
	return u.Host
}
