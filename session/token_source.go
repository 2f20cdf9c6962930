package session

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-log-dashboard/tokenstore"
	"golang.org/x/oauth2"
)

var _ oauth2.TokenSource = (*Client)(nil)

// Token returns the persisted access token for clients that authenticate
// outside the HTTP interceptor, such as the push channel. The expiry is read
// from the JWT exp claim without verifying the signature; opaque tokens have
// no expiry.
func (c *Client) Token() (*oauth2.Token, error) {
	access := c.accessToken()
	if access == "" {
		return nil, &Error{Kind: ErrSessionExpired, Message: "not logged in"}
	}

	tok := &oauth2.Token{
		AccessToken:  access,
		TokenType:    "Bearer",
		RefreshToken: c.read(tokenstore.RefreshToken),
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			tok.Expiry = exp.Time
		}
	}
	return tok, nil
}
