package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/jrsteele09/go-log-dashboard/users"
	"gopkg.in/yaml.v3"
)

type outputMode string

const (
	outputText outputMode = "text"
	outputJSON outputMode = "json"
	outputYAML outputMode = "yaml"
)

const maxMessageWidth = 80

func parseOutputMode(s string) (outputMode, error) {
	switch mode := outputMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "", outputText:
		return outputText, nil
	case outputJSON, outputYAML:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown output format %q (text|json|yaml)", s)
	}
}

// emit writes v as JSON or YAML. Text output is left to the caller and
// emit reports false for it.
func (a *app) emit(v any) (bool, error) {
	switch a.output {
	case outputJSON:
		return true, writeJSON(a.out, v)
	case outputYAML:
		return true, writeYAML(a.out, v)
	default:
		return false, nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML goes through JSON first so the field names match the API.
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printLogs(w io.Writer, entries []logs.Log, now time.Time) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tWHEN\tSEVERITY\tSOURCE\tMESSAGE")
	for _, l := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.ID, humanize.RelTime(l.Timestamp, now, "ago", "from now"), l.Severity, l.Source, truncate(l.Message, maxMessageWidth))
	}
	return tw.Flush()
}

func printLog(w io.Writer, l logs.Log) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", l.ID)
	fmt.Fprintf(tw, "Timestamp:\t%s (%s)\n", l.Timestamp.Format(time.RFC3339), humanize.Time(l.Timestamp))
	fmt.Fprintf(tw, "Severity:\t%s\n", l.Severity)
	fmt.Fprintf(tw, "Source:\t%s\n", l.Source)
	fmt.Fprintf(tw, "Message:\t%s\n", l.Message)
	return tw.Flush()
}

func printBuckets(w io.Writer, group logs.GroupBy, buckets []logs.Bucket) error {
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "%s\tCOUNT\tSHARE\n", strings.ToUpper(string(group)))
	for _, b := range buckets {
		share := 0.0
		if total > 0 {
			share = float64(b.Count) * 100 / float64(total)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s%%\n", b.Key, humanize.Comma(int64(b.Count)), humanize.FtoaWithDigits(share, 1))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t\n", humanize.Comma(int64(total)))
	return tw.Flush()
}

func printPreferences(w io.Writer, prefs []logs.FilterPreference) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tSEVERITY\tSOURCE\tFROM\tTO\tCREATED")
	for _, p := range prefs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, orDash(string(p.Severity)), orDash(p.Source), dateOrDash(p.DateFrom), dateOrDash(p.DateTo), humanize.Time(p.CreatedAt))
	}
	return tw.Flush()
}

func printProfile(w io.Writer, p *users.Profile) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Username:\t%s\n", p.Username)
	fmt.Fprintf(tw, "Name:\t%s\n", p.DisplayName())
	fmt.Fprintf(tw, "Email:\t%s\n", p.Email)
	fmt.Fprintf(tw, "ID:\t%d\n", p.ID)
	return tw.Flush()
}

func pageSummary(count, page, shown int) string {
	if count == 0 {
		return "no logs match"
	}
	first := (page-1)*logs.PageSize + 1
	return fmt.Sprintf("showing %s-%s of %s", humanize.Comma(int64(first)), humanize.Comma(int64(first+shown-1)), humanize.Comma(int64(count)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dateOrDash(d *logs.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}
