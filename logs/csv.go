package logs

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jrsteele09/go-log-dashboard/internal/errors"
)

// CSVHeader is the first row of an export.
var CSVHeader = []string{"id", "timestamp", "message", "severity", "source"}

// CSVWriter writes the export format one row at a time so a response can be
// streamed.
type CSVWriter struct {
	w *csv.Writer
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(CSVHeader)
}

func (c *CSVWriter) Write(l Log) error {
	return c.w.Write([]string{
		strconv.FormatInt(l.ID, 10),
		l.Timestamp.UTC().Format(time.RFC3339Nano),
		l.Message,
		string(l.Severity),
		l.Source,
	})
}

func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

// ReadCSV parses an export.
func ReadCSV(r io.Reader) ([]Log, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "empty export")
	}
	if err != nil {
		return nil, fmt.Errorf("read export header: %w", err)
	}
	for i, name := range CSVHeader {
		if header[i] != name {
			return nil, errors.Wrapf(errors.ErrInvalidRequest, "unexpected column %q at %d", header[i], i)
		}
	}

	var out []Log
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read export row: %w", err)
		}
		id, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id %q", len(out)+1, rec[0])
		}
		ts, err := ParseTime(rec[1])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(out)+1, err)
		}
		out = append(out, Log{ID: id, Timestamp: ts, Message: rec[2], Severity: Severity(rec[3]), Source: rec[4]})
	}
}
