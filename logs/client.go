package logs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-log-dashboard/authmodel"
	"github.com/jrsteele09/go-log-dashboard/internal/errors"
)

const maxErrorBody = 64 << 10

// Requester sends an authenticated request to the API. *session.Client
// implements it.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (*http.Response, error)
}

type Client struct {
	api Requester
}

func NewClient(api Requester) *Client {
	return &Client{api: api}
}

// APIError is a non-2xx response from a resource endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// Is lets callers match a 404 with errors.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == errors.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status of an APIError, or 0 for any other error.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func (c *Client) List(ctx context.Context, f Filter) (*Page[Log], error) {
	var page Page[Log]
	if err := c.do(ctx, http.MethodGet, withQuery(RouteLogs, f.Values()), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Raw returns every log matching f without pagination.
func (c *Client) Raw(ctx context.Context, f Filter) ([]Log, error) {
	f.Page = 0
	var entries []Log
	if err := c.do(ctx, http.MethodGet, withQuery(RouteLogsRaw, f.Values()), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Get(ctx context.Context, id int64) (*Log, error) {
	var l Log
	if err := c.do(ctx, http.MethodGet, logPath(id), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) Create(ctx context.Context, l Log) (*Log, error) {
	var created Log
	if err := c.do(ctx, http.MethodPost, RouteLogs, l, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update replaces every field of the log l.ID.
func (c *Client) Update(ctx context.Context, l Log) (*Log, error) {
	var updated Log
	if err := c.do(ctx, http.MethodPut, logPath(l.ID), l, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) Patch(ctx context.Context, id int64, p Patch) (*Log, error) {
	var updated Log
	if err := c.do(ctx, http.MethodPatch, logPath(id), p, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, logPath(id), nil, nil)
}

// Aggregate counts the logs matching f by date, severity or source. The
// interval only applies to date grouping.
func (c *Client) Aggregate(ctx context.Context, group GroupBy, interval Interval, f Filter) ([]Bucket, error) {
	q := f.Values()
	q.Del("page")
	q.Set("group_by", string(group))
	if group == GroupByDate && interval != "" {
		q.Set("interval", string(interval))
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, withQuery(RouteLogsAggregated, q), nil, &raw); err != nil {
		return nil, err
	}
	return UnmarshalBuckets(group, raw)
}

// ExportCSV streams the CSV export of the logs matching f into w and returns
// the number of bytes written.
func (c *Client) ExportCSV(ctx context.Context, f Filter, w io.Writer) (int64, error) {
	f.Page = 0
	resp, err := c.api.Request(ctx, http.MethodGet, withQuery(RouteLogsExportCSV, f.Values()), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return 0, err
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("export: %w", err)
	}
	return n, nil
}

func (c *Client) ListPreferences(ctx context.Context, page int) (*Page[FilterPreference], error) {
	q := url.Values{}
	if page > 1 {
		q.Set("page", fmt.Sprint(page))
	}
	var p Page[FilterPreference]
	if err := c.do(ctx, http.MethodGet, withQuery(RoutePreferences, q), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetPreference(ctx context.Context, id int64) (*FilterPreference, error) {
	var p FilterPreference
	if err := c.do(ctx, http.MethodGet, preferencePath(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreatePreference(ctx context.Context, p FilterPreference) (*FilterPreference, error) {
	var created FilterPreference
	if err := c.do(ctx, http.MethodPost, RoutePreferences, p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdatePreference(ctx context.Context, p FilterPreference) (*FilterPreference, error) {
	var updated FilterPreference
	if err := c.do(ctx, http.MethodPut, preferencePath(p.ID), p, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeletePreference(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, preferencePath(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.api.Request(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := authmodel.FirstMessage(body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
