package mockapi

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/jrsteele09/go-log-dashboard/authmodel"
	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/users"
)

const (
	msgNoActiveAccount = "No active account found with the given credentials"
	msgRefreshInvalid  = "Token is invalid or expired"
	msgPasswordsDiffer = "Password fields didn't match."
	msgUsernameTaken   = "A user with that username already exists."
	msgEmailTaken      = "This field must be unique."
	msgInvalidEmail    = "Enter a valid email address."
	maxUsernameLength  = 150
)

// LoginHandler exchanges credentials for a token pair
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authmodel.LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		errs := authmodel.FieldErrors{}
		if strings.TrimSpace(req.Username) == "" {
			errs.Add("username", msgRequired)
		}
		if req.Password == "" {
			errs.Add("password", msgRequired)
		}
		if len(errs) > 0 {
			writeFieldErrors(w, errs)
			return
		}

		user, err := s.users.GetByUsername(req.Username)
		if err != nil || !user.IsActive || !user.CheckPassword(req.Password) {
			s.log.Info().Str("username", req.Username).Msg("mockapi.login.rejected")
			writeDetail(w, http.StatusUnauthorized, msgNoActiveAccount)
			return
		}

		pair, err := s.tokens.IssuePair(user)
		if err != nil {
			s.log.Error().Err(err).Msg("mockapi.login.issue")
			writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
			return
		}
		_ = s.users.SetLastLogin(user.ID)
		s.counters.logins.Add(1)

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, authmodel.TokenPair{Access: pair.Access, Refresh: pair.Refresh})
	}
}

// RegisterHandler creates an account and logs it in
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req authmodel.RegisterRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		user, errs := s.CreateUser(req)
		if len(errs) > 0 {
			writeFieldErrors(w, errs)
			return
		}

		pair, err := s.tokens.IssuePair(user)
		if err != nil {
			s.log.Error().Err(err).Msg("mockapi.register.issue")
			writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
			return
		}
		s.counters.registrations.Add(1)

		profile := user.Profile()
		writeJSON(w, http.StatusCreated, authmodel.TokenPair{Access: pair.Access, Refresh: pair.Refresh, User: &profile})
	}
}

// CreateUser validates a registration and stores the account. Validation
// failures are returned per field.
func (s *Server) CreateUser(req users.Registration) (*users.User, authmodel.FieldErrors) {
	errs := validateRegistration(req)
	if len(errs) == 0 {
		if _, err := s.users.GetByUsername(req.Username); err == nil {
			errs.Add("username", msgUsernameTaken)
		}
		if _, err := s.users.GetByEmail(req.Email); err == nil {
			errs.Add("email", msgEmailTaken)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	// Matching passwords are only checked once every field is valid.
	if req.Password != req.Password2 {
		errs.Add("password", msgPasswordsDiffer)
		return nil, errs
	}

	hash, err := users.HashPassword(req.Password)
	if err != nil {
		errs.Add(authmodel.NonFieldErrors, "Unable to store password.")
		return nil, errs
	}
	user := &users.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateJoined:   time.Now().UTC(),
		IsActive:     true,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, errors.ErrUserExists) {
			errs.Add("username", msgUsernameTaken)
		} else {
			errs.Add(authmodel.NonFieldErrors, err.Error())
		}
		return nil, errs
	}
	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("mockapi.user.created")
	return user, nil
}

func validateRegistration(req users.Registration) authmodel.FieldErrors {
	errs := authmodel.FieldErrors{}

	switch {
	case strings.TrimSpace(req.Username) == "":
		errs.Add("username", msgRequired)
	case len(req.Username) > maxUsernameLength:
		errs.Add("username", "Ensure this field has no more than 150 characters.")
	}

	if strings.TrimSpace(req.Email) == "" {
		errs.Add("email", msgRequired)
	} else if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		errs.Add("email", msgInvalidEmail)
	}

	if req.Password == "" {
		errs.Add("password", msgRequired)
	} else if err := users.ValidatePasswordStrength(req.Password, req.Username); err != nil {
		errs.Add("password", err.Error())
	}
	if req.Password2 == "" {
		errs.Add("password2", msgRequired)
	}
	return errs
}

// RefreshHandler exchanges a refresh token for a new access token, rotating
// the refresh token when rotation is enabled
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.counters.refreshCalls.Add(1)
		s.metrics.RefreshCalls.Inc()

		var req authmodel.RefreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Refresh == "" {
			writeFieldErrors(w, authmodel.FieldErrors{"refresh": {msgRequired}})
			return
		}

		pair, err := s.tokens.Refresh(req.Refresh)
		if err != nil {
			s.counters.refreshFailed.Add(1)
			s.log.Info().Err(err).Msg("mockapi.refresh.rejected")
			writeUnauthorized(w, msgRefreshInvalid, "token_not_valid")
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, authmodel.RefreshResponse{Access: pair.Access, Refresh: pair.Refresh})
	}
}

// CurrentUserHandler returns the profile of the token's user
func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if claims := currentClaims(r); claims != nil {
			s.log.Debug().Str("jti", claims.ID).Int64("user_id", user.ID).Msg("mockapi.me")
		}
		writeJSON(w, http.StatusOK, user.Profile())
	}
}
