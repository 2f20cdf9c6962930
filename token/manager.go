// Package token issues and verifies the token pairs handed out by the mock
// API: short lived HS256 access tokens and opaque, rotating refresh tokens.
package token

import (
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/token/refresh"
	"github.com/jrsteele09/go-log-dashboard/users"
)

const (
	DefaultAccessTokenExpiry = 60 * time.Minute
	TokenType                = "Bearer"
)

// Claims are the access token claims. Subject carries the user ID.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrInvalidToken, "subject %q", c.Subject)
	}
	return id, nil
}

// Pair is an issued access and refresh token. Refresh is empty when a
// refresh did not rotate the refresh token.
type Pair struct {
	Access  string
	Refresh string
}

type Manager struct {
	signer            Signer
	refresh           *refresh.Manager
	userRepo          users.UserRepo
	revokedCache      RevokedTokenCache
	accessTokenExpiry time.Duration
	rotate            bool
	nowFunc           func() time.Time

	mu     sync.Mutex
	issued map[string]time.Time // jti to expiry of live access tokens
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithRevokedTokenCache(cache RevokedTokenCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(cfg config.TokenConfig, refreshRepo refresh.Repo, userRepo users.UserRepo, signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:            signer,
		refresh:           refresh.NewManager(refreshRepo, cfg),
		userRepo:          userRepo,
		accessTokenExpiry: cfg.GetAccessTokenExpiry(),
		rotate:            cfg.GetRotateRefreshTokens(),
		issued:            make(map[string]time.Time),
	}
	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = DefaultAccessTokenExpiry
	}
	if m.revokedCache == nil {
		m.revokedCache = NewInMemoryRevokedTokenCache()
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// AccessTokenExpiry is the lifetime of issued access tokens.
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}

// IssuePair creates an access token and a new refresh token for the user.
func (m *Manager) IssuePair(user *users.User) (*Pair, error) {
	access, err := m.CreateAccessToken(user)
	if err != nil {
		return nil, err
	}
	rt, err := m.refresh.Create(user.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "Manager.IssuePair")
	}
	return &Pair{Access: access, Refresh: rt}, nil
}

func (m *Manager) CreateAccessToken(user *users.User) (string, error) {
	now := m.nowFunc()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpiry)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrapf(err, "Manager.CreateAccessToken")
	}

	m.mu.Lock()
	m.issued[claims.ID] = claims.ExpiresAt.Time
	m.mu.Unlock()
	return signed, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation
// on, the presented refresh token is consumed and a new one is returned.
func (m *Manager) Refresh(refreshToken string) (*Pair, error) {
	var (
		rt   *refresh.StoredRefreshToken
		next string
		err  error
	)
	if m.rotate {
		next, rt, err = m.refresh.Rotate(refreshToken)
	} else {
		rt, err = m.refresh.Validate(refreshToken)
	}
	if err != nil {
		return nil, err
	}

	user, err := m.userRepo.GetByID(rt.UserID)
	if err != nil || !user.IsActive {
		if next != "" {
			_ = m.refresh.Delete(next)
		}
		return nil, errors.ErrInvalidRefreshToken
	}

	access, err := m.CreateAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &Pair{Access: access, Refresh: next}, nil
}

// VerifyAccess validates the signature, expiry and revocation state of an
// access token.
func (m *Manager) VerifyAccess(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, m.signer.Keyfunc,
		jwt.WithValidMethods([]string{m.signer.SigningMethod().Alg()}),
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errors.ErrTokenExpired
	case err != nil:
		return nil, errors.ErrInvalidToken
	}
	if claims.ID == "" || m.revokedCache.IsRevoked(claims.ID) {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// RevokeAccessTokens revokes every access token issued so far and returns how
// many were still live.
func (m *Manager) RevokeAccessTokens() int {
	now := m.nowFunc()
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for jti, exp := range m.issued {
		if exp.After(now) {
			_ = m.revokedCache.Add(jti, exp)
			n++
		}
		delete(m.issued, jti)
	}
	m.revokedCache.Cleanup(now)
	return n
}

// Logout drops every refresh token held by the user.
func (m *Manager) Logout(userID int64) (int, error) {
	return m.refresh.RevokeUser(userID)
}

// PurgeExpired removes expired refresh tokens and access token bookkeeping.
func (m *Manager) PurgeExpired() (int, error) {
	now := m.nowFunc()
	m.mu.Lock()
	for jti, exp := range m.issued {
		if !exp.After(now) {
			delete(m.issued, jti)
		}
	}
	m.mu.Unlock()
	m.revokedCache.Cleanup(now)
	return m.refresh.Purge()
}
