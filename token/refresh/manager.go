package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	DefaultExpiry      = 7 * 24 * time.Hour
	DefaultTokenLength = 32
)

// Manager handles refresh token creation, validation and rotation
type Manager struct {
	repo   Repo
	expiry time.Duration
	length int
}

func NewManager(repo Repo, cfg config.TokenConfig) *Manager {
	m := &Manager{
		repo:   repo,
		expiry: cfg.GetRefreshTokenExpiry(),
		length: cfg.GetRefreshTokenLength(),
	}
	if m.expiry <= 0 {
		m.expiry = DefaultExpiry
	}
	if m.length <= 0 {
		m.length = DefaultTokenLength
	}
	return m
}

// Create generates a new refresh token for the user and stores it
func (m *Manager) Create(userID int64) (string, error) {
	tokenBytes := make([]byte, m.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:    tokenStr,
		UserID:   userID,
		IssuedAt: NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return tokenStr, nil
}

// Validate returns the record of a live refresh token. An expired token is
// removed before ErrRefreshTokenExpired is returned.
func (m *Manager) Validate(token string) (*StoredRefreshToken, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, errors.ErrInvalidRefreshToken
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return nil, errors.ErrRefreshTokenExpired
	}
	return rt, nil
}

// Rotate replaces a live refresh token with a new one for the same user.
// The old token stops working immediately.
func (m *Manager) Rotate(token string) (string, *StoredRefreshToken, error) {
	rt, err := m.Validate(token)
	if err != nil {
		return "", nil, err
	}
	// Delete reports a missing token when a concurrent rotation got there
	// first; only one caller may win.
	if err := m.repo.Delete(token); err != nil {
		return "", nil, errors.ErrInvalidRefreshToken
	}
	next, err := m.Create(rt.UserID)
	if err != nil {
		return "", nil, err
	}
	return next, rt, nil
}

func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

// RevokeUser removes every refresh token held by the user
func (m *Manager) RevokeUser(userID int64) (int, error) {
	return m.repo.DeleteByUserID(userID)
}

// Purge drops tokens that have outlived the configured expiry
func (m *Manager) Purge() (int, error) {
	return m.repo.DeleteIssuedBefore(NowTimeFunc().Add(-m.expiry))
}

func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return NowTimeFunc().Sub(rt.IssuedAt) > m.expiry
}
