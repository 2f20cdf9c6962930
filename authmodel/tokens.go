package authmodel

import "github.com/jrsteele09/go-log-dashboard/users"

// LoginRequest is the body of POST /auth/login/.
type LoginRequest = users.Credentials

// RegisterRequest is the body of POST /auth/register/.
type RegisterRequest = users.Registration

// TokenPair is returned by the login and register endpoints.
type TokenPair struct {
	// Access is the short lived JWT sent as "Authorization: Bearer <access>".
	// Lifespan: 60 minutes by default
	Access string `json:"access"`

	// Refresh is the opaque credential exchanged at POST /auth/refresh/ for a new access token.
	// Lifespan: 7 days by default, rotated on each use when rotation is enabled
	Refresh string `json:"refresh"`

	// User is the profile of the authenticated account.
	// Always present on register; login may omit it, in which case the client
	// fetches GET /auth/me/ with the new access token.
	User *users.Profile `json:"user,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is returned by POST /auth/refresh/.
type RefreshResponse struct {
	// Access is the new access token.
	Access string `json:"access"`

	// Refresh is only present when the backend rotated the refresh token. The
	// previous refresh token is no longer valid once a rotated one is issued.
	Refresh string `json:"refresh,omitempty"`
}
