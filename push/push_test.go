package push_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/jrsteele09/go-log-dashboard/push"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const accessToken = "A1"

func setupHub(t *testing.T, gauge prometheus.Gauge) (*push.Hub, *push.Listener) {
	t.Helper()
	hub := push.NewHub(zerolog.Nop(), push.WithListenerGauge(gauge))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+accessToken || r.URL.Query().Get("token") != accessToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		hub.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := config.Static{PushURL: "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/logs/"}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	listener, err := push.NewListener(cfg, ts)
	require.NoError(t, err)
	return hub, listener
}

func TestListenerReceivesBroadcastLogs(t *testing.T) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "listeners"})
	hub, listener := setupHub(t, gauge)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan push.Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- listener.Listen(ctx, func(ev push.Event) { events <- ev })
	}()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, float64(1), testutil.ToFloat64(gauge))

	sent, err := hub.Broadcast(logs.Log{ID: 11, Message: "disk full", Severity: logs.SeverityCritical, Source: "node-2"})
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	select {
	case ev := <-events:
		require.NotNil(t, ev.Log)
		require.Equal(t, int64(11), ev.Log.ID)
		require.Equal(t, logs.SeverityCritical, ev.Log.Severity)
		require.Contains(t, string(ev.Raw), "disk full")
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	_, err = hub.Broadcast(map[string]string{"type": "heartbeat"})
	require.NoError(t, err)
	select {
	case ev := <-events:
		require.Nil(t, ev.Log)
		require.JSONEq(t, `{"type": "heartbeat"}`, string(ev.Raw))
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestListenerRejectedHandshake(t *testing.T) {
	hub := push.NewHub(zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	cfg := config.Static{PushURL: "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/logs/"}
	listener, err := push.NewListener(cfg, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "stale"}))
	require.NoError(t, err)

	err = listener.Listen(context.Background(), func(push.Event) {})
	require.Error(t, err)
	require.Equal(t, 0, hub.Len())
}

func TestNewListenerValidatesURL(t *testing.T) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})

	_, err := push.NewListener(config.Static{PushURL: "http://localhost/ws/logs/"}, ts)
	require.Error(t, err)

	_, err = push.NewListener(config.Static{PushURL: "ws://localhost/ws/logs/"}, nil)
	require.Error(t, err)
}

func TestBroadcastWithoutClients(t *testing.T) {
	hub := push.NewHub(zerolog.Nop())
	sent, err := hub.Broadcast(logs.Log{ID: 1})
	require.NoError(t, err)
	require.Equal(t, 0, sent)
}
