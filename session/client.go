// Package session implements the authenticated HTTP client used by every
// call to the log API. It attaches the bearer token, refreshes an expired
// access token at most once per failure episode no matter how many requests
// fail together, replays each failed request once, and clears the session
// when the refresh token is rejected.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/internal/metrics"
	"github.com/jrsteele09/go-log-dashboard/tokenstore"
	"github.com/jrsteele09/go-log-dashboard/users"
	"github.com/rs/zerolog"
)

const maxBodySize = 1 << 20

// Session is a snapshot of the persisted session.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *users.Profile
}

type Client struct {
	baseURL   string
	store     tokenstore.Store
	raw       *http.Client // login, register and refresh; never intercepted
	authed    *http.Client
	timeout   time.Duration
	log       zerolog.Logger
	metrics   *metrics.Session
	onExpired func()

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult
}

type Option func(*Client)

// WithHTTPClient sets the client whose transport, jar and redirect policy are
// used for every call. The client is copied, not modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		cp := *hc
		c.raw = &cp
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithMetrics(m *metrics.Session) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithSessionExpiredHandler registers fn to be called after the session has
// been cleared because a refresh failed. A UI uses it to go back to its login
// screen.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

func New(cfg config.SessionConfig, store tokenstore.Store, opts ...Option) (*Client, error) {
	base := strings.TrimRight(cfg.GetAPIBaseURL(), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme and host are required", base)
	}
	if store == nil {
		return nil, errors.New("session.New: token store is required")
	}

	c := &Client{
		baseURL: base,
		store:   store,
		timeout: cfg.GetRequestTimeout(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.raw == nil {
		c.raw = &http.Client{}
	}
	if c.raw.Timeout == 0 {
		c.raw.Timeout = c.timeout
	}

	// Timeouts of the authenticated client are applied per attempt by the
	// interceptor, so a replay gets its own budget.
	c.authed = &http.Client{
		Transport:     c.raw.Transport,
		Jar:           c.raw.Jar,
		CheckRedirect: c.raw.CheckRedirect,
	}
	c.SetupInterceptors(c.authed)
	return c, nil
}

// HTTPClient returns the intercepted client used by Request.
func (c *Client) HTTPClient() *http.Client {
	return c.authed
}

// URL resolves a path against the API base URL. The path may carry a query.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Request sends an authenticated request. A non-nil body is encoded as JSON.
// Any status other than a recovered 401 is returned to the caller unchanged,
// and the caller must close the response body.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.authed.Do(req)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &Error{Kind: ErrTransportFailure, Err: err}
	}
	return resp, nil
}

// Session reads the persisted session.
func (c *Client) Session() Session {
	return Session{
		AccessToken:  c.read(tokenstore.AccessToken),
		RefreshToken: c.read(tokenstore.RefreshToken),
		User:         c.CurrentUser(),
	}
}

func (c *Client) accessToken() string {
	return c.read(tokenstore.AccessToken)
}

func (c *Client) read(key tokenstore.Key) string {
	v, err := c.store.Get(key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", string(key)).Msg("session.store.read")
		return ""
	}
	return v
}

func (c *Client) clear() {
	if err := tokenstore.Clear(c.store); err != nil {
		c.log.Error().Err(err).Msg("session.store.clear")
	}
}

// post sends an unauthenticated JSON request and returns the status and body.
func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(b))
	if err != nil {
		return 0, nil, fmt.Errorf("build POST %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.raw.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, fmt.Errorf("read POST %s response: %w", path, err)
	}
	return resp.StatusCode, body, nil
}
