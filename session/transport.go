package session

import (
	"context"
	"errors"
	"io"
	"net/http"
)

var errBodyNotReplayable = errors.New("request body cannot be replayed")

// SetupInterceptors installs the session behaviour on hc so every request sent
// through it carries the bearer token and recovers from an expired one.
// Calling it twice on the same client is a no-op.
func (c *Client) SetupInterceptors(hc *http.Client) {
	if t, ok := hc.Transport.(*transport); ok && t.client == c {
		return
	}
	hc.Transport = c.Transport(hc.Transport)
}

// Transport wraps base with the session behaviour. A nil base uses
// http.DefaultTransport.
func (c *Client) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{client: c, base: base}
}

type transport struct {
	client *Client
	base   http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	sent := t.client.accessToken()
	resp, err := t.attempt(req, sent, false)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	discard(resp)

	token, err := t.client.tokenAfterUnauthorized(req.Context(), sent)
	if err != nil {
		return nil, err
	}

	// The replay is final: a second 401 goes back to the caller.
	t.client.metrics.Replayed()
	t.client.log.Debug().Str("method", req.Method).Str("path", req.URL.Path).Msg("session.replay")
	return t.attempt(req, token, true)
}

// attempt sends one try of req with its own timeout. The timeout keeps
// running until the response body is closed.
func (t *transport) attempt(req *http.Request, token string, replay bool) (*http.Response, error) {
	ctx := req.Context()
	cancel := context.CancelFunc(func() {})
	if t.client.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.client.timeout)
	}

	r := req.Clone(ctx)
	if replay && req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			cancel()
			return nil, &Error{Kind: ErrTransportFailure, Err: errBodyNotReplayable}
		}
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, &Error{Kind: ErrTransportFailure, Err: err}
		}
		r.Body = body
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		cancel()
		return nil, &Error{Kind: ErrTransportFailure, Err: err}
	}
	if resp.StatusCode == http.StatusSwitchingProtocols {
		// The body is the upgraded connection and must stay a ReadWriteCloser.
		// Cancelling after the switch does not reach the hijacked conn.
		cancel()
		return resp, nil
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	_ = resp.Body.Close()
}
