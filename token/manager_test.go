package token_test

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/token"
	refreshfakerepo "github.com/jrsteele09/go-log-dashboard/token/refresh/repofake"
	"github.com/jrsteele09/go-log-dashboard/users"
	fakeuserrepo "github.com/jrsteele09/go-log-dashboard/users/repofake"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testFixture struct {
	manager *token.Manager
	user    *users.User
	clock   *clock
}

func setupTestFixture(t *testing.T, rotate bool) *testFixture {
	t.Helper()
	userRepo := fakeuserrepo.NewFakeUserRepo()
	user := &users.User{Username: "alice", Email: "alice@example.com", IsActive: true}
	require.NoError(t, userRepo.Create(user))

	c := &clock{now: time.Now()}
	cfg := config.Static{
		SigningSecret:       "test-secret",
		AccessTokenExpiry:   time.Minute,
		RefreshTokenExpiry:  time.Hour,
		RotateRefreshTokens: rotate,
	}
	m := token.New(cfg, refreshfakerepo.NewFakeRefreshTokenRepo(), userRepo, token.NewHMACSigner(cfg.SigningSecret), token.WithNowFunc(c.Now))
	return &testFixture{manager: m, user: user, clock: c}
}

func TestIssuePairAndVerify(t *testing.T) {
	f := setupTestFixture(t, true)

	pair, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.Len(t, pair.Refresh, 64)

	claims, err := f.manager.VerifyAccess(pair.Access)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.NotEmpty(t, claims.ID)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, f.user.ID, id)
	require.Equal(t, time.Minute, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestVerifyAccessExpired(t *testing.T) {
	f := setupTestFixture(t, true)
	pair, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	_, err = f.manager.VerifyAccess(pair.Access)
	require.ErrorIs(t, err, errors.ErrTokenExpired)
}

func TestVerifyAccessRejectsForeignTokens(t *testing.T) {
	f := setupTestFixture(t, true)
	pair, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)

	_, err = f.manager.VerifyAccess(pair.Access[:len(pair.Access)-2] + "xx")
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	other, err := token.NewHMACSigner("other-secret").Sign(jwt.MapClaims{
		"sub": "1",
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": "abc",
	})
	require.NoError(t, err)
	_, err = f.manager.VerifyAccess(other)
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = f.manager.VerifyAccess(unsigned)
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	_, err = f.manager.VerifyAccess("")
	require.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestRefreshRotates(t *testing.T) {
	f := setupTestFixture(t, true)
	pair, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)

	next, err := f.manager.Refresh(pair.Refresh)
	require.NoError(t, err)
	require.NotEmpty(t, next.Refresh)
	require.NotEqual(t, pair.Refresh, next.Refresh)
	require.NotEqual(t, pair.Access, next.Access)

	_, err = f.manager.VerifyAccess(next.Access)
	require.NoError(t, err)

	_, err = f.manager.Refresh(pair.Refresh)
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)

	_, err = f.manager.Refresh(next.Refresh)
	require.NoError(t, err)
}

func TestRefreshWithoutRotation(t *testing.T) {
	f := setupTestFixture(t, false)
	pair, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)

	for range 2 {
		next, err := f.manager.Refresh(pair.Refresh)
		require.NoError(t, err)
		require.Empty(t, next.Refresh)
		require.NotEmpty(t, next.Access)
	}
}

func TestConcurrentRotationHasOneWinner(t *testing.T) {
	f := setupTestFixture(t, true)
	pair, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.manager.Refresh(pair.Refresh); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestRefreshInactiveUser(t *testing.T) {
	f := setupTestFixture(t, true)
	pair, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)

	f.user.IsActive = false
	_, err = f.manager.Refresh(pair.Refresh)
	require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
}

func TestRevokeAccessTokens(t *testing.T) {
	f := setupTestFixture(t, true)
	first, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)

	require.Equal(t, 1, f.manager.RevokeAccessTokens())
	_, err = f.manager.VerifyAccess(first.Access)
	require.ErrorIs(t, err, errors.ErrInvalidToken)

	// Refresh tokens survive, so a client can recover.
	next, err := f.manager.Refresh(first.Refresh)
	require.NoError(t, err)
	_, err = f.manager.VerifyAccess(next.Access)
	require.NoError(t, err)
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	f := setupTestFixture(t, true)
	a, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)
	b, err := f.manager.IssuePair(f.user)
	require.NoError(t, err)

	n, err := f.manager.Logout(f.user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	for _, rt := range []string{a.Refresh, b.Refresh} {
		_, err = f.manager.Refresh(rt)
		require.ErrorIs(t, err, errors.ErrInvalidRefreshToken)
	}
}

func TestClaimsUserIDRejectsNonNumericSubject(t *testing.T) {
	c := &token.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}
	_, err := c.UserID()
	require.ErrorIs(t, err, errors.ErrInvalidToken)
	require.True(t, strings.Contains(err.Error(), "alice"))
}
