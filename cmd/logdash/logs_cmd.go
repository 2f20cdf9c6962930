package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/jrsteele09/go-log-dashboard/push"
	"github.com/spf13/cobra"
)

// filterFlags are shared by every command that queries logs.
type filterFlags struct {
	severity string
	source   string
	search   string
	from     string
	to       string
	ordering string
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&ff.severity, "severity", "", "DEBUG, INFO, WARNING, ERROR or CRITICAL")
	f.StringVar(&ff.source, "source", "", "exact source name")
	f.StringVarP(&ff.search, "search", "s", "", "text to find in message or source")
	f.StringVar(&ff.from, "from", "", "earliest timestamp (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&ff.to, "to", "", "latest timestamp (RFC 3339 or YYYY-MM-DD)")
	f.StringVar(&ff.ordering, "ordering", "", "timestamp, severity or source; prefix - for descending")
}

func (ff *filterFlags) filter() (logs.Filter, error) {
	f := logs.Filter{Source: ff.source, Search: ff.search, Ordering: ff.ordering}
	if ff.severity != "" {
		sev, err := logs.ParseSeverity(ff.severity)
		if err != nil {
			return f, err
		}
		f.Severity = sev
	}
	var err error
	if ff.from != "" {
		if f.DateFrom, err = logs.ParseTime(ff.from); err != nil {
			return f, fmt.Errorf("--from: %w", err)
		}
	}
	if ff.to != "" {
		if f.DateTo, err = logs.ParseTime(ff.to); err != nil {
			return f, fmt.Errorf("--to: %w", err)
		}
	}
	return f, nil
}

func newLogsCommand(env *environment, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query, create and follow logs",
	}
	cmd.AddCommand(
		newLogsListCommand(env, flags),
		newLogsGetCommand(env, flags),
		newLogsCreateCommand(env, flags),
		newLogsDeleteCommand(env, flags),
		newLogsAggregateCommand(env, flags),
		newLogsExportCommand(env, flags),
		newLogsWatchCommand(env, flags),
	)
	return cmd
}

func newLogsListCommand(env *environment, flags *globalFlags) *cobra.Command {
	var ff filterFlags
	var page int
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logs, one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := ff.filter()
			if err != nil {
				return err
			}
			if all {
				entries, err := a.logs.Raw(cmd.Context(), f)
				if err != nil {
					return describe(err)
				}
				if ok, err := a.emit(entries); ok {
					return err
				}
				if err := printLogs(a.out, entries, time.Now()); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s logs\n", humanize.Comma(int64(len(entries))))
				return nil
			}

			f.Page = page
			result, err := a.logs.List(cmd.Context(), f)
			if err != nil {
				return describe(err)
			}
			if ok, err := a.emit(result); ok {
				return err
			}
			if err := printLogs(a.out, result.Results, time.Now()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, pageSummary(result.Count, max(page, 1), len(result.Results)))
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every matching log without pagination")
	return cmd
}

func newLogsGetCommand(env *environment, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.logs.Get(cmd.Context(), id)
			if err != nil {
				return describe(err)
			}
			if ok, err := a.emit(l); ok {
				return err
			}
			return printLog(a.out, *l)
		},
	}
}

func newLogsCreateCommand(env *environment, flags *globalFlags) *cobra.Command {
	var message, severity, source, timestamp string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sev, err := logs.ParseSeverity(severity)
			if err != nil {
				return err
			}
			l := logs.Log{Message: message, Severity: sev, Source: source}
			if timestamp != "" {
				if l.Timestamp, err = logs.ParseTime(timestamp); err != nil {
					return fmt.Errorf("--timestamp: %w", err)
				}
			}

			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.logs.Create(cmd.Context(), l)
			if err != nil {
				return describe(err)
			}
			if ok, err := a.emit(created); ok {
				return err
			}
			fmt.Fprintf(a.out, "Created log %d\n", created.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&message, "message", "m", "", "log message (required)")
	f.StringVar(&severity, "severity", string(logs.SeverityInfo), "log severity")
	f.StringVar(&source, "source", "", "source service (required)")
	f.StringVar(&timestamp, "timestamp", "", "timestamp, defaults to now")
	_ = cmd.MarkFlagRequired("message")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newLogsDeleteCommand(env *environment, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.logs.Delete(cmd.Context(), id); err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "Deleted log %d\n", id)
			return nil
		},
	}
}

func newLogsAggregateCommand(env *environment, flags *globalFlags) *cobra.Command {
	var ff filterFlags
	var group, interval string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Count logs by date, severity or source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := logs.GroupBy(group)
			switch g {
			case logs.GroupByDate, logs.GroupBySeverity, logs.GroupBySource:
			default:
				return fmt.Errorf("--group-by must be date, severity or source")
			}
			iv := logs.Interval(interval)
			if iv != logs.IntervalDay && iv != logs.IntervalMonth {
				return fmt.Errorf("--interval must be day or month")
			}
			f, err := ff.filter()
			if err != nil {
				return err
			}

			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			buckets, err := a.logs.Aggregate(cmd.Context(), g, iv, f)
			if err != nil {
				return describe(err)
			}
			if a.output != outputText {
				body, err := logs.MarshalBuckets(g, buckets)
				if err != nil {
					return err
				}
				var raw any
				if err := json.Unmarshal(body, &raw); err != nil {
					return err
				}
				_, err = a.emit(raw)
				return err
			}
			return printBuckets(a.out, g, buckets)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVar(&group, "group-by", string(logs.GroupByDate), "date, severity or source")
	cmd.Flags().StringVar(&interval, "interval", string(logs.IntervalDay), "day or month, for --group-by date")
	return cmd
}

func newLogsExportCommand(env *environment, flags *globalFlags) *cobra.Command {
	var ff filterFlags
	var path string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download matching logs as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}
			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = a.out
			if path != "-" {
				file, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				defer file.Close()
				w = file
			}

			n, err := a.logs.ExportCSV(cmd.Context(), f, w)
			if err != nil {
				return describe(err)
			}
			if path != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s to %s\n", humanize.Bytes(uint64(n)), path)
			}
			return nil
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVarP(&path, "file", "f", logs.ExportFilename, "output file, - for stdout")
	return cmd
}

func newLogsWatchCommand(env *environment, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print new logs as they are created",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			listener, err := push.NewListener(a.cfg, a.session,
				push.WithLogger(a.log),
				push.WithHTTPClient(a.session.HTTPClient()),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s, press Ctrl+C to stop\n", a.cfg.GetPushURL())
			return listener.Listen(cmd.Context(), func(ev push.Event) {
				if ev.Log == nil {
					a.log.Debug().RawJSON("frame", ev.Raw).Msg("logdash.watch.skip")
					return
				}
				if ok, err := a.emit(ev.Log); ok {
					if err != nil {
						a.log.Warn().Err(err).Msg("logdash.watch.emit")
					}
					return
				}
				l := ev.Log
				fmt.Fprintf(a.out, "%s  %-8s  %-20s  %s\n", l.Timestamp.Local().Format(time.DateTime), l.Severity, l.Source, l.Message)
			})
		},
	}
}

// openAuthed is open plus a check that a session is stored.
func openAuthed(cmd *cobra.Command, env *environment, flags *globalFlags) (*app, error) {
	a, err := open(cmd, env, flags)
	if err != nil {
		return nil, err
	}
	if err := a.requireLogin(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
