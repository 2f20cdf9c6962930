package authmodel

import (
	"bytes"
	"encoding/json"
	"sort"
)

// ErrorDetail is the single message error payload: {"detail": "..."}.
type ErrorDetail struct {
	Detail string `json:"detail"`
}

// FieldErrors is the validation error payload: field name to messages.
// Errors that do not belong to one field use the "non_field_errors" key.
type FieldErrors map[string][]string

const NonFieldErrors = "non_field_errors"

func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// First returns the first message of the alphabetically first field. This
// matches what FirstMessage extracts from the marshalled payload, because
// encoding/json writes map keys in sorted order.
func (f FieldErrors) First() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		if len(f[k]) > 0 {
			return f[k][0]
		}
	}
	return ""
}

// FirstMessage extracts a human readable message from an error body. Both
// payload shapes are accepted: {"detail": "msg"} and {"field": ["msg", ...]}
// or {"field": "msg"}. Fields are visited in document order and the first
// string found wins. An empty string means no message could be found.
func FirstMessage(body []byte) string {
	dec := json.NewDecoder(bytes.NewReader(body))
	return firstValue(dec)
}

func firstValue(dec *json.Decoder) string {
	tok, err := dec.Token()
	if err != nil {
		return ""
	}
	switch v := tok.(type) {
	case string:
		return v
	case json.Delim:
		switch v {
		case '{':
			return firstInObject(dec)
		case '[':
			return firstInArray(dec)
		}
	}
	return ""
}

func firstInObject(dec *json.Decoder) string {
	for dec.More() {
		// key
		if _, err := dec.Token(); err != nil {
			return ""
		}
		if msg := firstValue(dec); msg != "" {
			return msg
		}
	}
	_, _ = dec.Token()
	return ""
}

func firstInArray(dec *json.Decoder) string {
	for dec.More() {
		if msg := firstValue(dec); msg != "" {
			return msg
		}
	}
	_, _ = dec.Token()
	return ""
}
