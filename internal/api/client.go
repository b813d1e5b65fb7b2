package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const DefaultBaseURL = "http://127.0.0.1:8000"

// Client talks to the Hidden Gems backend. Base URL and bearer token are
// per-client; use WithToken to derive a client for another identity.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithCookieJar carries backend cookies between calls, for deployments that
// keep a cookie session alongside the bearer token.
func WithCookieJar() Option {
	return func(c *Client) {
		jar, err := cookiejar.New(nil)
		if err == nil {
			c.http.Jar = jar
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{http: &http.Client{}}
	c.SetBaseURL(baseURL)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetBaseURL(u string) {
	if u == "" {
		u = DefaultBaseURL
	}
	c.mu.Lock()
	c.baseURL = strings.TrimRight(u, "/")
	c.mu.Unlock()
}

func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// WithToken returns an independent client that shares the underlying
// transport (and cookie jar) but carries its own token.
func (c *Client) WithToken(token string) *Client {
	return &Client{
		baseURL: c.BaseURL(),
		token:   token,
		http:    c.http,
	}
}

type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	payload Payload
	accept  string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) newHTTPRequest(ctx context.Context, r request) (*http.Request, error) {
	c.mu.RLock()
	base, token := c.baseURL, c.token
	c.mu.RUnlock()

	target := base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	var contentType string
	if r.payload != nil {
		var err error
		body, contentType, err = r.payload.encode()
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	accept := r.accept
	if accept == "" {
		accept = "application/json"
	}
	req.Header.Set("Accept", accept)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send performs the request and turns any non-2xx answer into an *Error
// carrying the status and body. No retries.
func (c *Client) send(ctx context.Context, r request) (*response, error) {
	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		return nil, &Error{Kind: KindPrecondition, Op: r.op, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError(r.op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(r.op, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(r.op, resp.StatusCode, body)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (c *Client) doJSON(ctx context.Context, r request, out any) error {
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(strings.TrimSpace(string(resp.body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &Error{
			Kind:   KindValidation,
			Op:     r.op,
			Status: resp.status,
			Body:   resp.body,
			Err:    fmt.Errorf("failed to decode response: %w", err),
		}
	}
	return nil
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
