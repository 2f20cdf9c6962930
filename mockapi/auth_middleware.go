package mockapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/token"
	"github.com/jrsteele09/go-log-dashboard/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyUser stores the authenticated *users.User
	ContextKeyUser ContextKey = "user"
	// ContextKeyClaims stores the verified *token.Claims
	ContextKeyClaims ContextKey = "claims"
)

const (
	msgNoCredentials = "Authentication credentials were not provided."
	msgTokenInvalid  = "Given token not valid for any token type"
)

// RequireAuth validates the Bearer access token. The push channel cannot set
// headers from a browser, so a "token" query parameter is accepted as well.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, msgNoCredentials, "")
				return
			}

			claims, err := s.tokens.VerifyAccess(raw)
			if err != nil {
				s.log.Debug().Err(err).Str("path", r.URL.Path).Msg("mockapi.auth.rejected")
				writeUnauthorized(w, msgTokenInvalid, "token_not_valid")
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				writeUnauthorized(w, msgTokenInvalid, "token_not_valid")
				return
			}
			user, err := s.users.GetByID(userID)
			if err != nil || !user.IsActive {
				if errors.Is(err, errors.ErrUserNotFound) || err == nil {
					writeUnauthorized(w, "User not found", "user_not_found")
					return
				}
				writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			ctx = context.WithValue(ctx, ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t, true
	}
	return "", false
}

// currentUser returns the user RequireAuth stored on the request.
func currentUser(r *http.Request) *users.User {
	u, _ := r.Context().Value(ContextKeyUser).(*users.User)
	return u
}

func currentClaims(r *http.Request) *token.Claims {
	c, _ := r.Context().Value(ContextKeyClaims).(*token.Claims)
	return c
}
