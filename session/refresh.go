package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-log-dashboard/authmodel"
	"github.com/jrsteele09/go-log-dashboard/tokenstore"
)

type refreshResult struct {
	token string
	err   error
}

// tokenAfterUnauthorized returns the token a request rejected with 401 should
// be replayed with. sent is the token the rejected request carried.
//
// Only one refresh is in flight at a time. Requests failing while it runs
// wait for its outcome, and requests that failed with a token that has since
// been replaced are replayed with the stored one without a new refresh. A
// request sent without a token always triggers a refresh.
func (c *Client) tokenAfterUnauthorized(ctx context.Context, sent string) (string, error) {
	c.mu.Lock()
	if c.refreshing {
		wait := make(chan refreshResult, 1)
		c.waiters = append(c.waiters, wait)
		c.mu.Unlock()
		c.metrics.Coalesced()

		select {
		case res := <-wait:
			return res.token, res.err
		case <-ctx.Done():
			// The episode still delivers into the buffered channel; the result is dropped.
			return "", &Error{Kind: ErrTransportFailure, Err: ctx.Err()}
		}
	}
	if current := c.accessToken(); sent != "" && current != "" && current != sent {
		c.mu.Unlock()
		return current, nil
	}
	c.refreshing = true
	c.mu.Unlock()

	return c.refresh(ctx)
}

// refresh runs one episode. The caller must have set c.refreshing.
func (c *Client) refresh(ctx context.Context) (string, error) {
	c.log.Debug().Msg("session.refresh.start")

	// A caller giving up must not abort the episode other requests wait on.
	token, err := c.exchangeRefreshToken(context.WithoutCancel(ctx))
	if err != nil {
		c.metrics.RefreshFailed()
		c.log.Warn().Err(err).Msg("session.refresh.failed")
		c.clear()
		expired := &Error{Kind: ErrSessionExpired, Err: err}
		c.settle(refreshResult{err: expired})
		if c.onExpired != nil {
			c.onExpired()
		}
		return "", expired
	}

	c.metrics.RefreshSucceeded()
	c.log.Debug().Msg("session.refresh.done")
	c.settle(refreshResult{token: token})
	return token, nil
}

// settle resolves every waiter in arrival order and closes the episode. The
// sends never block because each waiter channel has room for one result.
func (c *Client) settle(res refreshResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range c.waiters {
		w <- res
	}
	c.waiters = nil
	c.refreshing = false
}

func (c *Client) exchangeRefreshToken(ctx context.Context) (string, error) {
	refreshToken := c.read(tokenstore.RefreshToken)
	if refreshToken == "" {
		return "", errNoRefreshToken
	}

	status, body, err := c.post(ctx, authmodel.RouteRefresh, authmodel.RefreshRequest{Refresh: refreshToken})
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		if msg := authmodel.FirstMessage(body); msg != "" {
			return "", fmt.Errorf("refresh rejected with status %d: %s", status, msg)
		}
		return "", fmt.Errorf("refresh rejected with status %d", status)
	}

	var out authmodel.RefreshResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}
	if out.Access == "" {
		return "", fmt.Errorf("decode refresh response: access token missing")
	}

	values := map[tokenstore.Key]string{tokenstore.AccessToken: out.Access}
	if out.Refresh != "" {
		values[tokenstore.RefreshToken] = out.Refresh
	}
	if err := c.store.SetMany(values); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}
	return out.Access, nil
}
