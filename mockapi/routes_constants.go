package mockapi

import (
	"github.com/jrsteele09/go-log-dashboard/authmodel"
	"github.com/jrsteele09/go-log-dashboard/logs"
)

// APIPrefix is where the REST API is mounted. Clients use
// http://host:port/api as their base URL.
const APIPrefix = "/api"

// Route path constants
const (
	// Auth
	RouteLogin    = APIPrefix + authmodel.RouteLogin
	RouteRegister = APIPrefix + authmodel.RouteRegister
	RouteRefresh  = APIPrefix + authmodel.RouteRefresh
	RouteMe       = APIPrefix + authmodel.RouteMe

	// Logs
	RouteLogs           = APIPrefix + logs.RouteLogs
	RouteLogsRaw        = APIPrefix + logs.RouteLogsRaw
	RouteLogsAggregated = APIPrefix + logs.RouteLogsAggregated
	RouteLogsExportCSV  = APIPrefix + logs.RouteLogsExportCSV
	RouteLog            = APIPrefix + logs.RouteLogs + "{id}/"

	// Filter preferences
	RoutePreferences = APIPrefix + logs.RoutePreferences
	RoutePreference  = APIPrefix + logs.RoutePreferences + "{id}/"

	// Push channel and metrics live outside the API prefix
	RoutePushLogs = "/ws/logs/"
	RouteMetrics  = "/metrics"
)
