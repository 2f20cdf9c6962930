package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jrsteele09/go-log-dashboard/authmodel"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv"

	maxRequestBody = 1 << 20

	msgRequired = "This field is required."
	msgNotFound = "No %s matches the given query."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes the single message error payload
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, authmodel.ErrorDetail{Detail: detail})
}

func writeUnauthorized(w http.ResponseWriter, detail, code string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	body := map[string]string{"detail": detail}
	if code != "" {
		body["code"] = code
	}
	writeJSON(w, http.StatusUnauthorized, body)
}

func writeFieldErrors(w http.ResponseWriter, errs authmodel.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, errs)
}

func writeNotFound(w http.ResponseWriter, model string) {
	writeDetail(w, http.StatusNotFound, fmt.Sprintf(msgNotFound, model))
}

// decodeJSON reads a JSON object body into v. On failure it writes the
// error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Could not read request body.")
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

// pathID parses the {id} path wildcard. On failure it writes a 404.
func pathID(w http.ResponseWriter, r *http.Request, model string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeNotFound(w, model)
		return 0, false
	}
	return id, true
}
