package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/session"
	"github.com/jrsteele09/go-log-dashboard/tokenstore"
	"github.com/jrsteele09/go-log-dashboard/users"
	"github.com/stretchr/testify/require"
)

func TestLoginPersistsSessionWithInlineProfile(t *testing.T) {
	f := setupTestFixture(t, 5*time.Second)

	profile, err := f.client.Login(context.Background(), users.Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, aliceProfile, *profile)

	require.Equal(t, accessA1, f.stored(t, tokenstore.AccessToken))
	require.Equal(t, refreshR1, f.stored(t, tokenstore.RefreshToken))
	require.True(t, f.client.IsAuthenticated())
	require.Equal(t, &aliceProfile, f.client.CurrentUser())
	require.Zero(t, f.backend.meCalls.Load())

	s := f.client.Session()
	require.Equal(t, accessA1, s.AccessToken)
	require.Equal(t, refreshR1, s.RefreshToken)
}

func TestLoginFetchesProfileWhenNotInline(t *testing.T) {
	f := setupTestFixture(t, 5*time.Second)
	f.backend.set(func(b *backend) { b.loginInline = false })

	profile, err := f.client.Login(context.Background(), users.Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, aliceProfile, *profile)
	require.Equal(t, int32(1), f.backend.meCalls.Load())
	require.Equal(t, []string{"Bearer " + accessA1}, f.backend.headers())
	require.Equal(t, &aliceProfile, f.client.CurrentUser())
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTestFixture(t, 5*time.Second)

	_, err := f.client.Login(context.Background(), users.Credentials{Username: testUsername, Password: "wrong"})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	require.Equal(t, "No active account found with the given credentials", session.Message(err))
	require.Zero(t, f.backend.refreshCalls.Load())
	require.False(t, f.client.IsAuthenticated())
}

func TestLoginInvalidCredentialsWithoutMessage(t *testing.T) {
	f := setupTestFixture(t, 5*time.Second)
	f.backend.set(func(b *backend) {
		b.loginStatus = http.StatusBadRequest
		b.loginBody = `{}`
	})

	_, err := f.client.Login(context.Background(), users.Credentials{Username: testUsername, Password: testPassword})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	require.Equal(t, "Invalid username or password.", session.Message(err))
}

func TestLoginUnavailable(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		f := setupTestFixture(t, 5*time.Second)
		f.backend.set(func(b *backend) {
			b.loginStatus = http.StatusBadGateway
			b.loginBody = `<html>bad gateway</html>`
		})
		_, err := f.client.Login(context.Background(), users.Credentials{Username: testUsername, Password: testPassword})
		require.ErrorIs(t, err, session.ErrLoginUnavailable)
	})

	t.Run("connection refused", func(t *testing.T) {
		f := setupTestFixture(t, 5*time.Second)
		f.server.Close()
		_, err := f.client.Login(context.Background(), users.Credentials{Username: testUsername, Password: testPassword})
		require.ErrorIs(t, err, session.ErrLoginUnavailable)
		require.False(t, f.client.IsAuthenticated())
	})
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t, 5*time.Second)

	profile, err := f.client.Register(context.Background(), users.Registration{
		Username:  "bob",
		Email:     "bob@example.com",
		Password:  "hunter22!",
		Password2: "hunter22!",
	})
	require.NoError(t, err)
	require.Equal(t, "bob", profile.Username)
	require.True(t, f.client.IsAuthenticated())
	require.Equal(t, "bob", f.client.CurrentUser().Username)
}

func TestRegisterValidationFailed(t *testing.T) {
	f := setupTestFixture(t, 5*time.Second)
	f.backend.set(func(b *backend) {
		b.registerStatus = http.StatusBadRequest
		b.registerBody = `{"password":["Password fields didn't match."],"email":["This field must be unique."]}`
	})

	_, err := f.client.Register(context.Background(), users.Registration{Username: "bob", Password: "a", Password2: "b"})
	require.ErrorIs(t, err, session.ErrValidationFailed)
	require.Equal(t, "Password fields didn't match.", session.Message(err))
	require.False(t, f.client.IsAuthenticated())
}

func TestRegisterTransportFailure(t *testing.T) {
	f := setupTestFixture(t, 5*time.Second)
	f.server.Close()

	_, err := f.client.Register(context.Background(), users.Registration{Username: "bob"})
	require.ErrorIs(t, err, session.ErrTransportFailure)
	require.Equal(t, session.ErrTransportFailure, session.Kind(err))
}

func TestLogoutClearsSession(t *testing.T) {
	f := setupTestFixture(t, 5*time.Second)

	_, err := f.client.Login(context.Background(), users.Credentials{Username: testUsername, Password: testPassword})
	require.NoError(t, err)
	require.True(t, f.client.IsAuthenticated())

	f.server.Close()
	f.client.Logout()
	f.requireCleared(t)
	require.Zero(t, f.expired.Load())
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := session.New(config.Static{APIBaseURL: "localhost:8000"}, tokenstore.NewMemoryStore())
	require.Error(t, err)

	_, err = session.New(config.Static{APIBaseURL: "http://localhost:8000"}, nil)
	require.Error(t, err)
}

func TestErrorMessages(t *testing.T) {
	err := &session.Error{Kind: session.ErrTransportFailure, Err: context.DeadlineExceeded}
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.Contains(t, session.Message(err), "try again")
	require.Equal(t, "transport failure: context deadline exceeded", err.Error())

	require.Nil(t, session.Kind(errors.New("plain")))
	require.Equal(t, "plain", session.Message(errors.New("plain")))
}
