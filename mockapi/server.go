// Package mockapi is an in-memory implementation of the log dashboard API:
// JWT auth with rotating refresh tokens, the log resource with filtering,
// aggregation and CSV export, saved filter presets and the push channel.
// It backs the integration tests and local development of the clients.
package mockapi

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/internal/metrics"
	"github.com/jrsteele09/go-log-dashboard/push"
	"github.com/jrsteele09/go-log-dashboard/token"
	"github.com/jrsteele09/go-log-dashboard/token/refresh"
	refreshfakerepo "github.com/jrsteele09/go-log-dashboard/token/refresh/repofake"
	"github.com/jrsteele09/go-log-dashboard/users"
	fakeuserrepo "github.com/jrsteele09/go-log-dashboard/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	log      zerolog.Logger
	users    users.UserRepo
	tokens   *token.Manager
	logs     *logStore
	prefs    *preferenceStore
	hub      *push.Hub
	registry *prometheus.Registry
	metrics  *metrics.Server

	refreshRepo refresh.Repo
	counters    counters
}

type counters struct {
	logins        atomic.Int64
	registrations atomic.Int64
	refreshCalls  atomic.Int64
	refreshFailed atomic.Int64
}

// Counters is a snapshot of the request counts tests assert on.
type Counters struct {
	Logins        int64
	Registrations int64
	RefreshCalls  int64
	RefreshFailed int64
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

func WithUserRepo(repo users.UserRepo) Option {
	return func(s *Server) {
		s.users = repo
	}
}

func WithRefreshTokenRepo(repo refresh.Repo) Option {
	return func(s *Server) {
		s.refreshRepo = repo
	}
}

func New(cfg config.Config, opts ...Option) *Server {
	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		log:      zerolog.Nop(),
		logs:     newLogStore(),
		prefs:    newPreferenceStore(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.users == nil {
		s.users = fakeuserrepo.NewFakeUserRepo()
	}
	if s.refreshRepo == nil {
		s.refreshRepo = refreshfakerepo.NewFakeRefreshTokenRepo()
	}

	s.metrics = metrics.NewServer(s.registry)
	s.tokens = token.New(cfg, s.refreshRepo, s.users, token.NewHMACSigner(cfg.GetSigningSecret()))
	s.hub = push.NewHub(s.log, push.WithOriginPatterns(originPatterns(cfg.GetAllowedOrigins())...), push.WithListenerGauge(s.metrics.PushListeners))

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Registry exposes the collectors served on /metrics so a caller can add its own.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// ExpireAccessTokens makes every access token issued so far fail
// verification, as if they had all expired. Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() int {
	n := s.tokens.RevokeAccessTokens()
	s.log.Info().Int("revoked", n).Msg("mockapi.tokens.expired")
	return n
}

func (s *Server) Counters() Counters {
	return Counters{
		Logins:        s.counters.logins.Load(),
		Registrations: s.counters.registrations.Load(),
		RefreshCalls:  s.counters.refreshCalls.Load(),
		RefreshFailed: s.counters.refreshFailed.Load(),
	}
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		route = strings.TrimSuffix(route, "{$}")
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.log.Info().Msgf("[%s] %s", colourMethod(parts[0]), parts[1])
		} else {
			s.log.Info().Msgf("[%s] %s", colourMethod(""), parts[0])
		}
	}
}

// originPatterns turns allowed origins into the host patterns the WebSocket
// handshake checks.
func originPatterns(origins config.AllowedOrigins) []string {
	var patterns []string
	for o := range origins {
		host := o
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if host != "" {
			patterns = append(patterns, host)
		}
	}
	return patterns
}
