package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-log-dashboard/authmodel"
	"github.com/jrsteele09/go-log-dashboard/tokenstore"
	"github.com/jrsteele09/go-log-dashboard/users"
)

// Login exchanges credentials for a token pair and persists the session. When
// the endpoint does not return the profile inline it is fetched from
// /auth/me/ with the new access token.
func (c *Client) Login(ctx context.Context, creds users.Credentials) (*users.Profile, error) {
	status, body, err := c.post(ctx, authmodel.RouteLogin, authmodel.LoginRequest(creds))
	if err != nil {
		return nil, &Error{Kind: ErrLoginUnavailable, Err: err}
	}
	switch {
	case status >= 400 && status < 500:
		return nil, &Error{Kind: ErrInvalidCredentials, Message: authmodel.FirstMessage(body)}
	case status < 200 || status >= 300:
		return nil, &Error{Kind: ErrLoginUnavailable, Err: fmt.Errorf("login responded with status %d", status)}
	}

	pair, err := decodeTokenPair(body)
	if err != nil {
		return nil, &Error{Kind: ErrLoginUnavailable, Err: err}
	}
	profile, err := c.establish(ctx, pair)
	if err != nil {
		return nil, &Error{Kind: ErrLoginUnavailable, Err: err}
	}
	c.log.Info().Str("username", profile.Username).Msg("session.login")
	return profile, nil
}

// Register creates an account and persists the returned session. A rejected
// registration fails with ErrValidationFailed carrying the first field error.
func (c *Client) Register(ctx context.Context, reg users.Registration) (*users.Profile, error) {
	status, body, err := c.post(ctx, authmodel.RouteRegister, authmodel.RegisterRequest(reg))
	if err != nil {
		return nil, &Error{Kind: ErrTransportFailure, Err: err}
	}
	switch {
	case status >= 400 && status < 500:
		return nil, &Error{Kind: ErrValidationFailed, Message: authmodel.FirstMessage(body)}
	case status < 200 || status >= 300:
		return nil, &Error{Kind: ErrTransportFailure, Err: fmt.Errorf("register responded with status %d", status)}
	}

	pair, err := decodeTokenPair(body)
	if err != nil {
		return nil, &Error{Kind: ErrTransportFailure, Err: err}
	}
	profile, err := c.establish(ctx, pair)
	if err != nil {
		return nil, &Error{Kind: ErrTransportFailure, Err: err}
	}
	c.log.Info().Str("username", profile.Username).Msg("session.register")
	return profile, nil
}

// Logout clears the persisted session. It never fails.
func (c *Client) Logout() {
	c.clear()
	c.log.Info().Msg("session.logout")
}

// IsAuthenticated reports whether an access token is persisted.
func (c *Client) IsAuthenticated() bool {
	return c.accessToken() != ""
}

// CurrentUser returns the cached profile, or nil when there is none.
func (c *Client) CurrentUser() *users.Profile {
	raw := c.read(tokenstore.User)
	if raw == "" {
		return nil
	}
	var p users.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		c.log.Warn().Err(err).Msg("session.user.decode")
		return nil
	}
	return &p
}

// establish persists a token pair. Without an inline profile the session is
// only kept if the profile can be fetched.
func (c *Client) establish(ctx context.Context, pair *authmodel.TokenPair) (*users.Profile, error) {
	values := map[tokenstore.Key]string{
		tokenstore.AccessToken:  pair.Access,
		tokenstore.RefreshToken: pair.Refresh,
	}
	if pair.User != nil {
		b, err := json.Marshal(pair.User)
		if err != nil {
			return nil, fmt.Errorf("encode profile: %w", err)
		}
		values[tokenstore.User] = string(b)
		if err := c.store.SetMany(values); err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
		return pair.User, nil
	}

	if err := c.store.SetMany(values); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if err := c.store.Delete(tokenstore.User); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	profile, err := c.fetchProfile(ctx)
	if err != nil {
		c.clear()
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	b, err := json.Marshal(profile)
	if err != nil {
		c.clear()
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	if err := tokenstore.Set(c.store, tokenstore.User, string(b)); err != nil {
		return nil, fmt.Errorf("persist profile: %w", err)
	}
	return profile, nil
}

func (c *Client) fetchProfile(ctx context.Context) (*users.Profile, error) {
	resp, err := c.Request(ctx, http.MethodGet, authmodel.RouteMe, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s responded with status %d", authmodel.RouteMe, resp.StatusCode)
	}
	var p users.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func decodeTokenPair(body []byte) (*authmodel.TokenPair, error) {
	var pair authmodel.TokenPair
	if err := json.Unmarshal(body, &pair); err != nil {
		return nil, fmt.Errorf("decode token pair: %w", err)
	}
	if pair.Access == "" {
		return nil, fmt.Errorf("decode token pair: access token missing")
	}
	return &pair, nil
}
