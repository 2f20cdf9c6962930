// Package logs is the client for the log resource endpoints: listing with
// filters, CRUD, aggregation, CSV export and saved filter presets.
package logs

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/errors"
)

type Severity string

const (
	SeverityDebug    Severity = "DEBUG"
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Severities lists every severity from least to most severe.
var Severities = []Severity{SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical}

// ParseSeverity accepts a severity name in any case.
func ParseSeverity(s string) (Severity, error) {
	up := Severity(strings.ToUpper(strings.TrimSpace(s)))
	for _, sev := range Severities {
		if sev == up {
			return sev, nil
		}
	}
	return "", errors.Wrapf(errors.ErrInvalidRequest, "%q is not a valid severity", s)
}

type Log struct {
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"` // the backend uses the current time when zero
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Source    string    `json:"source"`
}

// Patch holds the fields of a partial update. Nil fields are left unchanged.
type Patch struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Message   *string    `json:"message,omitempty"`
	Severity  *Severity  `json:"severity,omitempty"`
	Source    *string    `json:"source,omitempty"`
}

// Apply copies the set fields onto l.
func (p Patch) Apply(l *Log) {
	if p.Timestamp != nil {
		l.Timestamp = *p.Timestamp
	}
	if p.Message != nil {
		l.Message = *p.Message
	}
	if p.Severity != nil {
		l.Severity = *p.Severity
	}
	if p.Source != nil {
		l.Source = *p.Source
	}
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

const PageSize = 20

// OrderingFields are the fields a listing can be ordered by, optionally
// prefixed with "-" for descending order.
var OrderingFields = []string{"timestamp", "severity", "source"}

// Filter narrows a log query. Zero fields are not applied.
type Filter struct {
	Severity Severity
	Source   string
	DateFrom time.Time // inclusive
	DateTo   time.Time // inclusive
	Search   string    // matches message or source, case insensitive
	Ordering string
	Page     int
}

func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Severity != "" {
		v.Set("severity", string(f.Severity))
	}
	if f.Source != "" {
		v.Set("source", f.Source)
	}
	if !f.DateFrom.IsZero() {
		v.Set("date_from", f.DateFrom.Format(time.RFC3339))
	}
	if !f.DateTo.IsZero() {
		v.Set("date_to", f.DateTo.Format(time.RFC3339))
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	if f.Ordering != "" {
		v.Set("ordering", f.Ordering)
	}
	if f.Page > 1 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	return v
}

// ParseFilter reads a filter from query parameters. Dates may be RFC 3339
// timestamps or plain dates.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter
	var err error

	if s := q.Get("severity"); s != "" {
		if f.Severity, err = ParseSeverity(s); err != nil {
			return Filter{}, err
		}
	}
	f.Source = q.Get("source")
	f.Search = strings.TrimSpace(q.Get("search"))

	if s := q.Get("date_from"); s != "" {
		if f.DateFrom, err = ParseTime(s); err != nil {
			return Filter{}, errors.Wrapf(errors.ErrInvalidRequest, "date_from")
		}
	}
	if s := q.Get("date_to"); s != "" {
		if f.DateTo, err = ParseTime(s); err != nil {
			return Filter{}, errors.Wrapf(errors.ErrInvalidRequest, "date_to")
		}
	}

	if s := q.Get("ordering"); s != "" {
		for _, field := range strings.Split(s, ",") {
			if !validOrdering(strings.TrimPrefix(strings.TrimSpace(field), "-")) {
				return Filter{}, errors.Wrapf(errors.ErrInvalidRequest, "cannot order by %q", field)
			}
		}
		f.Ordering = s
	}

	if s := q.Get("page"); s != "" {
		if f.Page, err = strconv.Atoi(s); err != nil || f.Page < 1 {
			return Filter{}, errors.Wrapf(errors.ErrInvalidRequest, "invalid page %q", s)
		}
	}
	return f, nil
}

func validOrdering(field string) bool {
	for _, o := range OrderingFields {
		if o == field {
			return true
		}
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// ParseTime accepts the timestamp formats written by the API and its CSV
// export. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

// Match reports whether l passes every criterion of f except paging and ordering.
func (f Filter) Match(l Log) bool {
	if f.Severity != "" && l.Severity != f.Severity {
		return false
	}
	if f.Source != "" && l.Source != f.Source {
		return false
	}
	if !f.DateFrom.IsZero() && l.Timestamp.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && l.Timestamp.After(f.DateTo) {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(l.Message), term) && !strings.Contains(strings.ToLower(l.Source), term) {
			return false
		}
	}
	return true
}
