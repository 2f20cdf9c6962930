package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-log-dashboard/authmodel"
	"github.com/jrsteele09/go-log-dashboard/internal/errors"
	"github.com/jrsteele09/go-log-dashboard/logs"
)

const (
	msgNameNotUnique = "The fields user, name must make a unique set."
	msgBadDate       = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	maxSeverityLen   = 10
)

// optionalDate records whether a date field was present at all, so PATCH
// can clear a date with null.
type optionalDate struct {
	set   bool
	value *string
}

func (o *optionalDate) UnmarshalJSON(data []byte) error {
	o.set = true
	return json.Unmarshal(data, &o.value)
}

type preferenceInput struct {
	Name     *string      `json:"name"`
	Severity *string      `json:"severity"`
	Source   *string      `json:"source"`
	DateFrom optionalDate `json:"date_from"`
	DateTo   optionalDate `json:"date_to"`
}

func (in preferenceInput) apply(p *logs.FilterPreference, partial bool) authmodel.FieldErrors {
	errs := authmodel.FieldErrors{}

	switch {
	case in.Name == nil:
		if !partial {
			errs.Add("name", msgRequired)
		}
	case *in.Name == "":
		errs.Add("name", msgBlank)
	case len(*in.Name) > logs.MaxPreferenceNameLength:
		errs.Add("name", fmt.Sprintf(msgTooLong, logs.MaxPreferenceNameLength))
	default:
		p.Name = *in.Name
	}

	if in.Severity != nil {
		sev := logs.Severity(*in.Severity)
		switch {
		case len(*in.Severity) > maxSeverityLen:
			errs.Add("severity", fmt.Sprintf(msgTooLong, maxSeverityLen))
		case sev != "" && !validSeverity(sev):
			errs.Add("severity", fmt.Sprintf(msgInvalidChoice, *in.Severity))
		default:
			p.Severity = sev
		}
	} else if !partial {
		p.Severity = ""
	}

	if in.Source != nil {
		if len(*in.Source) > maxSourceLength {
			errs.Add("source", fmt.Sprintf(msgTooLong, maxSourceLength))
		} else {
			p.Source = *in.Source
		}
	} else if !partial {
		p.Source = ""
	}

	applyDate(errs, "date_from", in.DateFrom, &p.DateFrom, partial)
	applyDate(errs, "date_to", in.DateTo, &p.DateTo, partial)
	return errs
}

func applyDate(errs authmodel.FieldErrors, field string, in optionalDate, dst **logs.Date, partial bool) {
	if !in.set {
		if !partial {
			*dst = nil
		}
		return
	}
	if in.value == nil || *in.value == "" {
		*dst = nil
		return
	}
	d, err := logs.ParseDate(*in.value)
	if err != nil {
		errs.Add(field, msgBadDate)
		return
	}
	*dst = &d
}

// ListPreferencesHandler lists the current user's saved filters, newest first
func (s *Server) ListPreferencesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if v := r.URL.Query().Get("page"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeDetail(w, http.StatusNotFound, msgInvalidPage)
				return
			}
			page = n
		}
		p, ok := paginate(w, r, s.prefs.List(currentUser(r).ID), page)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func (s *Server) CreatePreferenceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in preferenceInput
		if !decodeJSON(w, r, &in) {
			return
		}
		p := logs.FilterPreference{User: currentUser(r).ID}
		if errs := in.apply(&p, false); len(errs) > 0 {
			writeFieldErrors(w, errs)
			return
		}

		created, err := s.prefs.Create(p)
		switch {
		case errors.Is(err, errors.ErrConflict):
			writeFieldErrors(w, authmodel.FieldErrors{authmodel.NonFieldErrors: {msgNameNotUnique}})
		case err != nil:
			s.log.Error().Err(err).Msg("mockapi.preferences.create")
			writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
		default:
			writeJSON(w, http.StatusCreated, created)
		}
	}
}

func (s *Server) GetPreferenceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "UserFilterPreference")
		if !ok {
			return
		}
		p, found := s.prefs.Get(currentUser(r).ID, id)
		if !found {
			writeNotFound(w, "UserFilterPreference")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// UpdatePreferenceHandler serves PUT, and PATCH when partial is set
func (s *Server) UpdatePreferenceHandler(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "UserFilterPreference")
		if !ok {
			return
		}
		p, found := s.prefs.Get(currentUser(r).ID, id)
		if !found {
			writeNotFound(w, "UserFilterPreference")
			return
		}

		var in preferenceInput
		if !decodeJSON(w, r, &in) {
			return
		}
		if errs := in.apply(&p, partial); len(errs) > 0 {
			writeFieldErrors(w, errs)
			return
		}

		updated, err := s.prefs.Update(p)
		switch {
		case errors.Is(err, errors.ErrConflict):
			writeFieldErrors(w, authmodel.FieldErrors{authmodel.NonFieldErrors: {msgNameNotUnique}})
		case err != nil:
			writeNotFound(w, "UserFilterPreference")
		default:
			writeJSON(w, http.StatusOK, updated)
		}
	}
}

func (s *Server) DeletePreferenceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r, "UserFilterPreference")
		if !ok {
			return
		}
		if !s.prefs.Delete(currentUser(r).ID, id) {
			writeNotFound(w, "UserFilterPreference")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
