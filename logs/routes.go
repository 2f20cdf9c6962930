package logs

import "fmt"

const (
	RouteLogs           = "/logs/"
	RouteLogsRaw        = "/logs/raw/"
	RouteLogsAggregated = "/logs/aggregated/"
	RouteLogsExportCSV  = "/logs/export_csv/"
	RoutePreferences    = "/filter-preferences/"

	ExportFilename = "logs_export.csv"
)

func logPath(id int64) string {
	return fmt.Sprintf("%s%d/", RouteLogs, id)
}

func preferencePath(id int64) string {
	return fmt.Sprintf("%s%d/", RoutePreferences, id)
}
