// Package httpx holds the shared HTTP client every upstream adapter goes
// through. One instance is constructed in the composition root and
// injected; adapters never build or mutate their own client.
package httpx

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const defaultUserAgent = "Microsoft-Delivery-Optimization/10.1"

// Client wraps a single *http.Client with the store's default headers.
type Client struct {
	http      *http.Client
	userAgent string
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient substitutes the underlying *http.Client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// New creates a Client with the store's defaults.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: 2 * time.Minute,
		},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetJSON issues a GET and returns the parsed JSON tree. Non-2xx statuses
// become *UpstreamError, transport failures *NetworkError, and a body
// that is not JSON at all *SchemaError.
func (c *Client) GetJSON(ctx context.Context, url string) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.do(req)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &SchemaError{Field: "(body)"}
	}
	return gjson.ParseBytes(body), nil
}

// PostXML issues a POST with a SOAP envelope body and returns the raw
// response bytes. Error mapping matches GetJSON.
func (c *Client) PostXML(ctx context.Context, url, envelope string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(envelope))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	return c.do(req)
}

// Stream issues a GET and hands back the response body for the caller to
// consume. Used for artifact downloads; the caller must close the reader.
func (c *Client) Stream(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{URL: url, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, 0, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp.Body, resp.ContentLength, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: req.URL.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: req.URL.String(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: trimBody(body)}
	}
	return body, nil
}

// trimBody keeps error bodies readable in terminal output.
func trimBody(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 512 {
		s = s[:512] + "…"
	}
	return s
}
