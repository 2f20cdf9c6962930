package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/spf13/cobra"
)

func newPrefsCommand(env *environment, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"filters"},
		Short:   "Manage saved log filters",
	}
	cmd.AddCommand(
		newPrefsListCommand(env, flags),
		newPrefsCreateCommand(env, flags),
		newPrefsDeleteCommand(env, flags),
		newPrefsApplyCommand(env, flags),
	)
	return cmd
}

func newPrefsListCommand(env *environment, flags *globalFlags) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved filters, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.logs.ListPreferences(cmd.Context(), page)
			if err != nil {
				return describe(err)
			}
			if ok, err := a.emit(result); ok {
				return err
			}
			return printPreferences(a.out, result.Results)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}

func newPrefsCreateCommand(env *environment, flags *globalFlags) *cobra.Command {
	var name, severity, source, from, to string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Save a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := logs.FilterPreference{Name: name, Source: source}
			if severity != "" {
				sev, err := logs.ParseSeverity(severity)
				if err != nil {
					return err
				}
				p.Severity = sev
			}
			for _, d := range []struct {
				flag string
				in   string
				dst  **logs.Date
			}{
				{"--from", from, &p.DateFrom},
				{"--to", to, &p.DateTo},
			} {
				if d.in == "" {
					continue
				}
				date, err := logs.ParseDate(d.in)
				if err != nil {
					return fmt.Errorf("%s: expected YYYY-MM-DD", d.flag)
				}
				*d.dst = &date
			}

			a, err := openAuthed(cmd, env, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.logs.CreatePreference(cmd.Context(), p)
			if err != nil {
				return describe(err)
			}
			if ok, err := a.emit(created); ok {
				return err
			}
			fmt.Fprintf(a.out, "Saved filter %q (id %d)\n", created.Name, created.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&name, "name", "n", "", "filter name, unique per user (required)")
	f.StringVar(&severity, "severity", "", "severity to match")
	f.StringVar(&source, "source", "", "source to match")
	f.StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPrefsDeleteCommand(env *environment, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved filter",
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

			if err := a.logs.DeletePreference(cmd.Context(), id); err != nil {
				return describe(err)
			}
			fmt.Fprintf(a.out, "Deleted filter %d\n", id)
			return nil
		},
	}
}

func newPrefsApplyCommand(env *environment, flags *globalFlags) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "apply <id>",
		Short: "List the logs a saved filter matches",
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

			pref, err := a.logs.GetPreference(cmd.Context(), id)
			if err != nil {
				return describe(err)
			}
			f := pref.Filter()
			f.Page = page
			result, err := a.logs.List(cmd.Context(), f)
			if err != nil {
				return describe(err)
			}
			if ok, err := a.emit(result); ok {
				return err
			}
			fmt.Fprintf(a.out, "Filter %q\n", pref.Name)
			if err := printLogs(a.out, result.Results, time.Now()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, pageSummary(result.Count, max(page, 1), len(result.Results)))
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	return cmd
}
