package session_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-log-dashboard/authmodel"
	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/session"
	"github.com/jrsteele09/go-log-dashboard/tokenstore"
	"github.com/jrsteele09/go-log-dashboard/users"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "alice"
	testPassword = "secret"
	accessA1     = "A1"
	accessA2     = "A2"
	refreshR1    = "R1"
	refreshR2    = "R2"
	logsPath     = "/logs/"
)

var aliceProfile = users.Profile{
	ID:        1,
	Username:  testUsername,
	Email:     "alice@example.com",
	FirstName: "Alice",
	LastName:  "Smith",
}

// backend is a scripted auth and resource API. Fields are guarded by mu
// because handlers run on server goroutines.
type backend struct {
	mu                 sync.Mutex
	valid              map[string]bool
	loginInline        bool
	loginStatus        int
	loginBody          string
	registerStatus     int
	registerBody       string
	refreshStatus      int
	refreshResp        authmodel.RefreshResponse
	refreshWait        func()
	holdUnauthorized   func(r *http.Request)
	resourceDelay      time.Duration
	alwaysUnauthorized bool
	authHeaders        []string
	bodies             []string

	refreshCalls atomic.Int32
	refreshSeen  atomic.Value // last refresh token presented
	meCalls      atomic.Int32
	unauthorized atomic.Int32
}

func (b *backend) set(fn func(b *backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *backend) headers() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.authHeaders...)
}

func (b *backend) countHeader(value string) int {
	n := 0
	for _, h := range b.headers() {
		if h == value {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (b *backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds users.Credentials
	_ = json.NewDecoder(r.Body).Decode(&creds)

	b.mu.Lock()
	status, body, inline := b.loginStatus, b.loginBody, b.loginInline
	b.mu.Unlock()

	if status != 0 {
		writeRaw(w, status, body)
		return
	}
	if creds.Username != testUsername || creds.Password != testPassword {
		writeJSON(w, http.StatusUnauthorized, authmodel.ErrorDetail{Detail: "No active account found with the given credentials"})
		return
	}
	b.set(func(b *backend) { b.valid[accessA1] = true })
	pair := authmodel.TokenPair{Access: accessA1, Refresh: refreshR1}
	if inline {
		p := aliceProfile
		pair.User = &p
	}
	writeJSON(w, http.StatusOK, pair)
}

func (b *backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	status, body := b.registerStatus, b.registerBody
	b.mu.Unlock()

	if status != 0 {
		writeRaw(w, status, body)
		return
	}
	var reg users.Registration
	_ = json.NewDecoder(r.Body).Decode(&reg)
	b.set(func(b *backend) { b.valid[accessA1] = true })
	writeJSON(w, http.StatusCreated, authmodel.TokenPair{
		Access:  accessA1,
		Refresh: refreshR1,
		User:    &users.Profile{ID: 2, Username: reg.Username, Email: reg.Email},
	})
}

func (b *backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	var req authmodel.RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	b.refreshSeen.Store(req.Refresh)

	b.mu.Lock()
	wait, status, resp := b.refreshWait, b.refreshStatus, b.refreshResp
	b.mu.Unlock()

	if wait != nil {
		wait()
	}
	if status != 0 && status != http.StatusOK {
		writeJSON(w, status, authmodel.ErrorDetail{Detail: "Token is invalid or expired"})
		return
	}
	b.set(func(b *backend) { b.valid[resp.Access] = true })
	writeJSON(w, http.StatusOK, resp)
}

func (b *backend) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")

		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, header)
		ok := b.valid[token] && !b.alwaysUnauthorized
		hold := b.holdUnauthorized
		b.mu.Unlock()

		if !ok {
			if hold != nil {
				hold(r)
			}
			b.unauthorized.Add(1)
			writeJSON(w, http.StatusUnauthorized, authmodel.ErrorDetail{Detail: "Given token not valid for any token type"})
			return
		}
		next(w, r)
	}
}

func (b *backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.meCalls.Add(1)
	writeJSON(w, http.StatusOK, aliceProfile)
}

func (b *backend) handleLogs(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	delay := b.resourceDelay
	b.bodies = append(b.bodies, string(body))
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": 0, "results": []any{}})
}

type testFixture struct {
	backend *backend
	server  *httptest.Server
	store   *tokenstore.MemoryStore
	client  *session.Client
	expired atomic.Int32
}

func setupTestFixture(t *testing.T, timeout time.Duration) *testFixture {
	t.Helper()

	b := &backend{valid: map[string]bool{}, loginInline: true}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+authmodel.RouteLogin, b.handleLogin)
	mux.HandleFunc("POST "+authmodel.RouteRegister, b.handleRegister)
	mux.HandleFunc("POST "+authmodel.RouteRefresh, b.handleRefresh)
	mux.HandleFunc("GET "+authmodel.RouteMe, b.requireAuth(b.handleMe))
	mux.HandleFunc(logsPath, b.requireAuth(b.handleLogs))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	f := &testFixture{
		backend: b,
		server:  server,
		store:   tokenstore.NewMemoryStore(),
	}
	c, err := session.New(
		config.Static{APIBaseURL: server.URL, RequestTimeout: timeout},
		f.store,
		session.WithSessionExpiredHandler(func() { f.expired.Add(1) }),
	)
	require.NoError(t, err)
	f.client = c
	return f
}

// seed stores a session whose access token the backend does not accept.
func (f *testFixture) seed(t *testing.T, access, refresh string) {
	t.Helper()
	values := map[tokenstore.Key]string{}
	if access != "" {
		values[tokenstore.AccessToken] = access
	}
	if refresh != "" {
		values[tokenstore.RefreshToken] = refresh
	}
	b, err := json.Marshal(aliceProfile)
	require.NoError(t, err)
	values[tokenstore.User] = string(b)
	require.NoError(t, f.store.SetMany(values))
}

func (f *testFixture) stored(t *testing.T, key tokenstore.Key) string {
	t.Helper()
	v, err := f.store.Get(key)
	require.NoError(t, err)
	return v
}

func (f *testFixture) requireCleared(t *testing.T) {
	t.Helper()
	for _, k := range tokenstore.Keys {
		require.Empty(t, f.stored(t, k), "key %s should be cleared", k)
	}
	require.False(t, f.client.IsAuthenticated())
	require.Nil(t, f.client.CurrentUser())
}

// waitUntil polls cond for up to five seconds. It is safe to call from
// handler goroutines.
func waitUntil(cond func() bool) bool {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
	return true
}
