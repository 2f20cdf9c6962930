package mockapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jrsteele09/go-log-dashboard/authmodel"
	"github.com/jrsteele09/go-log-dashboard/logs"
)

const (
	maxSourceLength = 100
	exportFlushRows = 500

	msgBlank         = "This field may not be blank."
	msgInvalidChoice = "\"%s\" is not a valid choice."
	msgTooLong       = "Ensure this field has no more than %d characters."
	msgBadDatetime   = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	msgInvalidPage   = "Invalid page."
)

// logInput is a create or update body. Pointers tell absent fields apart
// from empty ones.
type logInput struct {
	Timestamp *string `json:"timestamp"`
	Message   *string `json:"message"`
	Severity  *string `json:"severity"`
	Source    *string `json:"source"`
}

// apply validates the input and copies it onto l. A partial update only
// validates the fields present.
func (in logInput) apply(l *logs.Log, partial bool) authmodel.FieldErrors {
	errs := authmodel.FieldErrors{}

	if in.Timestamp != nil {
		ts, err := logs.ParseTime(*in.Timestamp)
		if err != nil {
			errs.Add("timestamp", msgBadDatetime)
		} else {
			l.Timestamp = ts.UTC()
		}
	}

	switch {
	case in.Message == nil:
		if !partial {
			errs.Add("message", msgRequired)
		}
	case *in.Message == "":
		errs.Add("message", msgBlank)
	default:
		l.Message = *in.Message
	}

	switch {
	case in.Severity == nil:
		if !partial {
			errs.Add("severity", msgRequired)
		}
	default:
		sev := logs.Severity(*in.Severity)
		if !validSeverity(sev) {
			errs.Add("severity", fmt.Sprintf(msgInvalidChoice, *in.Severity))
		} else {
			l.Severity = sev
		}
	}

	switch {
	case in.Source == nil:
		if !partial {
			errs.Add("source", msgRequired)
		}
	case *in.Source == "":
		errs.Add("source", msgBlank)
	case len(*in.Source) > maxSourceLength:
		errs.Add("source", fmt.Sprintf(msgTooLong, maxSourceLength))
	default:
		l.Source = *in.Source
	}
	return errs
}

func validSeverity(sev logs.Severity) bool {
	for _, s := range logs.Severities {
		if s == sev {
			return true
		}
	}
	return false
}

// queryFilter parses the filter parameters. On failure it writes a 400.
func queryFilter(w http.ResponseWriter, r *http.Request) (logs.Filter, bool) {
	f, err := logs.ParseFilter(r.URL.Query())
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return logs.Filter{}, false
	}
	return f, true
}

// ListLogsHandler returns one page of logs matching the query filter
func (s *Server) ListLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := queryFilter(w, r)
		if !ok {
			return
		}
		page, ok := paginate(w, r, s.logs.Query(f), f.Page)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

// RawLogsHandler returns every matching log without pagination
func (s *Server) RawLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := queryFilter(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.logs.Query(f))
	}
}

// AggregatedLogsHandler counts matching logs by date, severity or source
func (s *Server) AggregatedLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := queryFilter(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		group := logs.GroupBy(q.Get("group_by"))
		switch group {
		case "":
			group = logs.GroupByDate
		case logs.GroupByDate, logs.GroupBySeverity:
		default:
			group = logs.GroupBySource
		}
		interval := logs.IntervalDay
		if v := q.Get("interval"); v != "" && v != string(logs.IntervalDay) {
			interval = logs.IntervalMonth
		}

		body, err := logs.MarshalBuckets(group, logs.Aggregate(s.logs.Query(f), group, interval))
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write(body)
	}
}

// ExportCSVHandler streams every matching log as CSV
func (s *Server) ExportCSVHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, ok := queryFilter(w, r)
		if !ok {
			return
		}
		entries := s.logs.Query(f)

		w.Header().Set("Content-Type", contentTypeCSV)
		w.Header().Set("Content-Disposition", `attachment; filename="`+logs.ExportFilename+`"`)
		flusher, _ := w.(http.Flusher)

		cw := logs.NewCSVWriter(w)
		if err := cw.WriteHeader(); err != nil {
			return
		}
		for i, l := range entries {
			if err := cw.Write(l); err != nil {
				s.log.Debug().Err(err).Msg("mockapi.export.write")
				return
			}
			if (i+1)%exportFlushRows == 0 && flusher != nil {
				if err := cw.Flush(); err != nil {
					return
				}
				flusher.Flush()
			}
		}
		if err := cw.Flush(); err != nil {
			s.log.Debug().Err(err).Msg("mockapi.export.flush")
		}
	}
}

// CreateLogHandler stores a log and broadcasts it on the push channel
func (s *Server) CreateLogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in logInput
		if !decodeJSON(w, r, &in) {
			return
		}
		var l logs.Log
		if errs := in.apply(&l, false); len(errs) > 0 {
			writeFieldErrors(w, errs)
			return
		}
		writeJSON(w, http.StatusCreated, s.PublishLog(l))
	}
}

// PublishLog stores l and sends it to every push listener.
func (s *Server) PublishLog(l logs.Log) logs.Log {
	created := s.logs.Create(l)
	n, err := s.hub.Broadcast(created)
	if err != nil {
		s.log.Error().Err(err).Int64("log_id", created.ID).Msg("mockapi.push.broadcast")
		return created
	}
	s.metrics.LogsBroadcasts.Inc()
	s.log.Debug().Int64("log_id", created.ID).Int("listeners", n).Msg("mockapi.push.broadcast")
	return created
}

func (s *Server) GetLogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "Log")
		if !ok {
			return
		}
		l, found := s.logs.Get(id)
		if !found {
			writeNotFound(w, "Log")
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// UpdateLogHandler serves PUT, and PATCH when partial is set
func (s *Server) UpdateLogHandler(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "Log")
		if !ok {
			return
		}
		l, found := s.logs.Get(id)
		if !found {
			writeNotFound(w, "Log")
			return
		}

		var in logInput
		if !decodeJSON(w, r, &in) {
			return
		}
		if errs := in.apply(&l, partial); len(errs) > 0 {
			writeFieldErrors(w, errs)
			return
		}
		if !s.logs.Replace(l) {
			writeNotFound(w, "Log")
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func (s *Server) DeleteLogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "Log")
		if !ok {
			return
		}
		if !s.logs.Delete(id) {
			writeNotFound(w, "Log")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// paginate cuts one page of logs.PageSize items. Page numbers start at 1;
// a page past the end is a 404 unless it is the first.
func paginate[T any](w http.ResponseWriter, r *http.Request, items []T, page int) (logs.Page[T], bool) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * logs.PageSize
	if start >= len(items) && page != 1 {
		writeDetail(w, http.StatusNotFound, msgInvalidPage)
		return logs.Page[T]{}, false
	}
	end := min(start+logs.PageSize, len(items))

	p := logs.Page[T]{Count: len(items), Results: items[start:end]}
	if end < len(items) {
		next := pageURL(r, page+1)
		p.Next = &next
	}
	if page > 1 {
		prev := pageURL(r, page-1)
		p.Previous = &prev
	}
	return p, true
}

// pageURL is the absolute URL of the request with its page number replaced.
// Page 1 drops the parameter.
func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return strings.TrimSuffix(u.String(), "?")
}
