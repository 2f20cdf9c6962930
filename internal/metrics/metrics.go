package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Session holds the collectors updated by the session client. A nil *Session
// is valid and records nothing.
type Session struct {
	refreshes *prometheus.CounterVec
	coalesced prometheus.Counter
	replays   prometheus.Counter
}

func NewSession(reg prometheus.Registerer) *Session {
	s := &Session{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logdash",
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Token refresh episodes by result.",
		}, []string{"result"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logdash",
			Subsystem: "session",
			Name:      "coalesced_requests_total",
			Help:      "Requests that waited on a refresh already in flight.",
		}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logdash",
			Subsystem: "session",
			Name:      "replays_total",
			Help:      "Requests replayed after an authorization failure.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.refreshes, s.coalesced, s.replays)
	}
	return s
}

func (s *Session) RefreshSucceeded() {
	if s != nil {
		s.refreshes.WithLabelValues("success").Inc()
	}
}

func (s *Session) RefreshFailed() {
	if s != nil {
		s.refreshes.WithLabelValues("failure").Inc()
	}
}

func (s *Session) Coalesced() {
	if s != nil {
		s.coalesced.Inc()
	}
}

func (s *Session) Replayed() {
	if s != nil {
		s.replays.Inc()
	}
}

// Server holds the collectors of the mock backend.
type Server struct {
	Requests       *prometheus.CounterVec
	RefreshCalls   prometheus.Counter
	PushListeners  prometheus.Gauge
	LogsBroadcasts prometheus.Counter
}

func NewServer(reg prometheus.Registerer) *Server {
	s := &Server{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "logdash",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		RefreshCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logdash",
			Subsystem: "api",
			Name:      "token_refresh_total",
			Help:      "Calls to the token refresh endpoint.",
		}),
		PushListeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "logdash",
			Subsystem: "api",
			Name:      "push_listeners",
			Help:      "Connected push channel listeners.",
		}),
		LogsBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "logdash",
			Subsystem: "api",
			Name:      "push_broadcasts_total",
			Help:      "Log events broadcast on the push channel.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.Requests, s.RefreshCalls, s.PushListeners, s.LogsBroadcasts)
	}
	return s
}
