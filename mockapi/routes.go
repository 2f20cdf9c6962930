package mockapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	api := s.APIMiddleware()
	authed := s.APIMiddleware(s.RequireAuth())

	// AUTH
	s.RegisterRouteHandler("POST "+RouteLogin+"{$}", ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteRegister+"{$}", ChainMiddleware(s.RegisterHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteRefresh+"{$}", ChainMiddleware(s.RefreshHandler(), api...))
	s.RegisterRouteHandler("GET "+RouteMe+"{$}", ChainMiddleware(s.CurrentUserHandler(), authed...))

	// LOGS
	s.RegisterRouteHandler("GET "+RouteLogs+"{$}", ChainMiddleware(s.ListLogsHandler(), authed...))
	s.RegisterRouteHandler("POST "+RouteLogs+"{$}", ChainMiddleware(s.CreateLogHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteLogsRaw+"{$}", ChainMiddleware(s.RawLogsHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteLogsAggregated+"{$}", ChainMiddleware(s.AggregatedLogsHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteLogsExportCSV+"{$}", ChainMiddleware(s.ExportCSVHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteLog+"{$}", ChainMiddleware(s.GetLogHandler(), authed...))
	s.RegisterRouteHandler("PUT "+RouteLog+"{$}", ChainMiddleware(s.UpdateLogHandler(false), authed...))
	s.RegisterRouteHandler("PATCH "+RouteLog+"{$}", ChainMiddleware(s.UpdateLogHandler(true), authed...))
	s.RegisterRouteHandler("DELETE "+RouteLog+"{$}", ChainMiddleware(s.DeleteLogHandler(), authed...))

	// FILTER PREFERENCES
	s.RegisterRouteHandler("GET "+RoutePreferences+"{$}", ChainMiddleware(s.ListPreferencesHandler(), authed...))
	s.RegisterRouteHandler("POST "+RoutePreferences+"{$}", ChainMiddleware(s.CreatePreferenceHandler(), authed...))
	s.RegisterRouteHandler("GET "+RoutePreference+"{$}", ChainMiddleware(s.GetPreferenceHandler(), authed...))
	s.RegisterRouteHandler("PUT "+RoutePreference+"{$}", ChainMiddleware(s.UpdatePreferenceHandler(false), authed...))
	s.RegisterRouteHandler("PATCH "+RoutePreference+"{$}", ChainMiddleware(s.UpdatePreferenceHandler(true), authed...))
	s.RegisterRouteHandler("DELETE "+RoutePreference+"{$}", ChainMiddleware(s.DeletePreferenceHandler(), authed...))

	// Browsers send CORS preflights without credentials
	s.RegisterRouteHandler("OPTIONS "+APIPrefix+"/", ChainMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, api...))

	s.RegisterRouteHandler("GET "+RoutePushLogs+"{$}", ChainMiddleware(s.hub.ServeHTTP, s.LoggingMiddleware, s.RequireAuth()))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}
