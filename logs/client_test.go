package logs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/internal/utils"
	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/stretchr/testify/require"
)

// plainRequester sends unauthenticated requests to a test server.
type plainRequester struct {
	base string
}

func (p plainRequester) Request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.base+path, reader)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

type recorded struct {
	method string
	path   string
	query  url.Values
	body   []byte
}

func setupClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*logs.Client, *recorded) {
	t.Helper()
	rec := &recorded{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.Path
		rec.query = r.URL.Query()
		rec.body, _ = io.ReadAll(r.Body)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return logs.NewClient(plainRequester{base: server.URL}), rec
}

func respond(status int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestListSendsFilterAndDecodesPage(t *testing.T) {
	client, rec := setupClient(t, respond(http.StatusOK, `{
		"count": 21,
		"next": "http://api/logs/?page=3",
		"previous": "http://api/logs/",
		"results": [{"id": 7, "timestamp": "2024-03-01T10:00:00Z", "message": "disk full", "severity": "ERROR", "source": "node-1"}]
	}`))

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	page, err := client.List(context.Background(), logs.Filter{
		Severity: logs.SeverityError,
		Source:   "node-1",
		DateFrom: from,
		Search:   "disk",
		Ordering: "-timestamp",
		Page:     2,
	})
	require.NoError(t, err)

	require.Equal(t, http.MethodGet, rec.method)
	require.Equal(t, logs.RouteLogs, rec.path)
	require.Equal(t, "ERROR", rec.query.Get("severity"))
	require.Equal(t, "node-1", rec.query.Get("source"))
	require.Equal(t, "2024-03-01T00:00:00Z", rec.query.Get("date_from"))
	require.Equal(t, "disk", rec.query.Get("search"))
	require.Equal(t, "-timestamp", rec.query.Get("ordering"))
	require.Equal(t, "2", rec.query.Get("page"))

	require.Equal(t, 21, page.Count)
	require.NotNil(t, page.Next)
	require.Len(t, page.Results, 1)
	require.Equal(t, int64(7), page.Results[0].ID)
	require.Equal(t, logs.SeverityError, page.Results[0].Severity)
	require.True(t, page.Results[0].Timestamp.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestRawIgnoresPage(t *testing.T) {
	client, rec := setupClient(t, respond(http.StatusOK, `[{"id": 1, "message": "a", "severity": "INFO", "source": "s"}]`))

	entries, err := client.Raw(context.Background(), logs.Filter{Page: 4})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, logs.RouteLogsRaw, rec.path)
	require.Empty(t, rec.query.Get("page"))
}

func TestCreateOmitsZeroTimestamp(t *testing.T) {
	client, rec := setupClient(t, respond(http.StatusCreated, `{"id": 3, "timestamp": "2024-03-01T10:00:00Z", "message": "boot", "severity": "INFO", "source": "init"}`))

	created, err := client.Create(context.Background(), logs.Log{Message: "boot", Severity: logs.SeverityInfo, Source: "init"})
	require.NoError(t, err)
	require.Equal(t, int64(3), created.ID)
	require.Equal(t, http.MethodPost, rec.method)
	require.NotContains(t, string(rec.body), "timestamp")
	require.NotContains(t, string(rec.body), `"id"`)
}

func TestPatchSendsOnlySetFields(t *testing.T) {
	client, rec := setupClient(t, respond(http.StatusOK, `{"id": 9, "message": "m", "severity": "CRITICAL", "source": "s"}`))

	updated, err := client.Patch(context.Background(), 9, logs.Patch{Severity: utils.Ptr(logs.SeverityCritical)})
	require.NoError(t, err)
	require.Equal(t, logs.SeverityCritical, updated.Severity)
	require.Equal(t, http.MethodPatch, rec.method)
	require.Equal(t, "/logs/9/", rec.path)
	require.JSONEq(t, `{"severity": "CRITICAL"}`, string(rec.body))
}

func TestDeleteNoContent(t *testing.T) {
	client, rec := setupClient(t, respond(http.StatusNoContent, ""))

	require.NoError(t, client.Delete(context.Background(), 5))
	require.Equal(t, http.MethodDelete, rec.method)
	require.Equal(t, "/logs/5/", rec.path)
}

func TestNotFoundIsAPIError(t *testing.T) {
	client, _ := setupClient(t, respond(http.StatusNotFound, `{"detail": "No Log matches the given query."}`))

	_, err := client.Get(context.Background(), 404)
	require.Error(t, err)

	var apiErr *logs.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "No Log matches the given query.", apiErr.Message)
	require.True(t, errors.Is(err, errors.ErrNotFound))
	require.Equal(t, http.StatusNotFound, logs.StatusCode(err))
}

func TestValidationErrorUsesFirstFieldMessage(t *testing.T) {
	client, _ := setupClient(t, respond(http.StatusBadRequest, `{"severity": ["\"LOUD\" is not a valid choice."], "message": ["This field is required."]}`))

	_, err := client.Create(context.Background(), logs.Log{Severity: "LOUD"})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, logs.StatusCode(err))

	var apiErr *logs.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, `"LOUD" is not a valid choice.`, apiErr.Message)
	require.False(t, errors.Is(err, errors.ErrNotFound))
}

func TestUnauthorizedWithoutBody(t *testing.T) {
	client, _ := setupClient(t, respond(http.StatusUnauthorized, ""))

	_, err := client.List(context.Background(), logs.Filter{})
	require.Equal(t, http.StatusUnauthorized, logs.StatusCode(err))
	require.Contains(t, err.Error(), http.StatusText(http.StatusUnauthorized))
}

func TestAggregateByDate(t *testing.T) {
	client, rec := setupClient(t, respond(http.StatusOK, `[{"date": "2024-03-01", "count": 4}, {"date": "2024-03-02", "count": 1}]`))

	buckets, err := client.Aggregate(context.Background(), logs.GroupByDate, logs.IntervalDay, logs.Filter{Source: "api", Page: 3})
	require.NoError(t, err)
	require.Equal(t, []logs.Bucket{{Key: "2024-03-01", Count: 4}, {Key: "2024-03-02", Count: 1}}, buckets)
	require.Equal(t, logs.RouteLogsAggregated, rec.path)
	require.Equal(t, "date", rec.query.Get("group_by"))
	require.Equal(t, "day", rec.query.Get("interval"))
	require.Equal(t, "api", rec.query.Get("source"))
	require.Empty(t, rec.query.Get("page"))
}

func TestAggregateBySeverityOmitsInterval(t *testing.T) {
	client, rec := setupClient(t, respond(http.StatusOK, `[{"severity": "ERROR", "count": 9}]`))

	buckets, err := client.Aggregate(context.Background(), logs.GroupBySeverity, logs.IntervalMonth, logs.Filter{})
	require.NoError(t, err)
	require.Equal(t, []logs.Bucket{{Key: "ERROR", Count: 9}}, buckets)
	require.Empty(t, rec.query.Get("interval"))
}

func TestExportCSVStreamsBody(t *testing.T) {
	var buf bytes.Buffer
	w := logs.NewCSVWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(logs.Log{ID: 1, Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Message: "a, with comma", Severity: logs.SeverityWarning, Source: "s1"}))
	require.NoError(t, w.Flush())
	export := buf.String()

	client, rec := setupClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, export)
	})

	var out strings.Builder
	n, err := client.ExportCSV(context.Background(), logs.Filter{Severity: logs.SeverityWarning}, &out)
	require.NoError(t, err)
	require.Equal(t, int64(len(export)), n)
	require.Equal(t, logs.RouteLogsExportCSV, rec.path)
	require.Equal(t, "WARNING", rec.query.Get("severity"))

	entries, err := logs.ReadCSV(strings.NewReader(out.String()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a, with comma", entries[0].Message)
	require.Equal(t, logs.SeverityWarning, entries[0].Severity)
}

func TestPreferencesCRUD(t *testing.T) {
	client, rec := setupClient(t, respond(http.StatusCreated, `{"id": 2, "user": 1, "name": "errors", "severity": "ERROR", "source": "", "date_from": "2024-03-01", "date_to": null, "created_at": "2024-03-05T09:00:00Z", "updated_at": "2024-03-05T09:00:00Z"}`))

	from := logs.NewDate(2024, time.March, 1)
	created, err := client.CreatePreference(context.Background(), logs.FilterPreference{Name: "errors", Severity: logs.SeverityError, DateFrom: &from})
	require.NoError(t, err)
	require.Equal(t, logs.RoutePreferences, rec.path)
	require.JSONEq(t, `{"name": "errors", "severity": "ERROR", "source": "", "date_from": "2024-03-01", "date_to": null}`, string(rec.body))
	require.Equal(t, int64(2), created.ID)
	require.NotNil(t, created.DateFrom)
	require.Equal(t, "2024-03-01", created.DateFrom.String())
	require.Nil(t, created.DateTo)

	require.NoError(t, client.DeletePreference(context.Background(), 2))
	require.Equal(t, "/filter-preferences/2/", rec.path)
}
