package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/internal/logging"
	"github.com/jrsteele09/go-log-dashboard/internal/metrics"
	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/jrsteele09/go-log-dashboard/session"
	"github.com/jrsteele09/go-log-dashboard/tokenstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// environment is what the commands run against. Tests replace the config
// and share one token store between invocations.
type environment struct {
	config config.Config
	store  tokenstore.Store
	stdin  io.Reader
}

// overrides lets the global flags win over the environment variables.
type overrides struct {
	config.Config
	apiURL string
	wsURL  string
}

func (o overrides) GetAPIBaseURL() string {
	if o.apiURL != "" {
		return o.apiURL
	}
	return o.Config.GetAPIBaseURL()
}

func (o overrides) GetPushURL() string {
	if o.wsURL != "" {
		return o.wsURL
	}
	return o.Config.GetPushURL()
}

// app is built once per command invocation.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	store    tokenstore.Store
	ownStore bool
	session  *session.Client
	logs     *logs.Client
	metrics  *metrics.Session
	out      io.Writer
	in       *bufio.Reader
	output   outputMode
}

type globalFlags struct {
	apiURL  string
	wsURL   string
	output  string
	verbose bool
}

func newRootCommand(env *environment) *cobra.Command {
	if env == nil {
		env = &environment{config: config.New(), stdin: os.Stdin}
	}
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "logdash",
		Short:         "Log dashboard client",
		Long:          "logdash talks to the log dashboard API: sign in, query and export logs, manage saved filters and follow new logs live.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(cmd.OutOrStdout(), env.config.GetAppName())
			return cmd.Help()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", "", "API base URL (default $LOGDASH_API_URL or http://localhost:8000/api)")
	pf.StringVar(&flags.wsURL, "ws-url", "", "push channel URL (default $LOGDASH_WS_URL)")
	pf.StringVarP(&flags.output, "output", "o", string(outputText), "output format (text|json|yaml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log requests and token refreshes to stderr")

	cmd.AddCommand(
		newLoginCommand(env, flags),
		newRegisterCommand(env, flags),
		newLogoutCommand(env, flags),
		newWhoamiCommand(env, flags),
		newLogsCommand(env, flags),
		newPrefsCommand(env, flags),
	)
	return cmd
}

// open builds the session client for one command. The caller must close it.
func open(cmd *cobra.Command, env *environment, flags *globalFlags) (*app, error) {
	mode, err := parseOutputMode(flags.output)
	if err != nil {
		return nil, err
	}
	cfg := overrides{Config: env.config, apiURL: flags.apiURL, wsURL: flags.wsURL}

	level := cfg.GetLogLevel()
	if flags.verbose {
		level = "debug"
	} else if level == "" || strings.EqualFold(level, "info") {
		level = "warn"
	}
	log := logging.NewWithWriter(cmd.ErrOrStderr(), level, cfg.GetEnv())

	a := &app{
		cfg:     cfg,
		log:     log,
		store:   env.store,
		metrics: metrics.NewSession(prometheus.NewRegistry()),
		out:     cmd.OutOrStdout(),
		output:  mode,
	}
	if env.stdin != nil {
		a.in = bufio.NewReader(env.stdin)
	}
	if a.store == nil {
		a.store, err = tokenstore.New(cfg, log)
		if err != nil {
			return nil, fmt.Errorf("open token store: %w", err)
		}
		a.ownStore = true
	}

	a.session, err = session.New(cfg, a.store,
		session.WithLogger(log),
		session.WithMetrics(a.metrics),
		session.WithSessionExpiredHandler(func() {
			fmt.Fprintln(cmd.ErrOrStderr(), "Your session has expired. Run `logdash login` to sign in again.")
		}),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.logs = logs.NewClient(a.session)
	return a, nil
}

func (a *app) Close() {
	if a.ownStore && a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("logdash.store.close")
		}
	}
}

// requireLogin fails early instead of letting the first request 401.
func (a *app) requireLogin() error {
	if !a.session.IsAuthenticated() {
		return fmt.Errorf("not logged in, run `logdash login` first")
	}
	return nil
}

// describe turns a session error into the message meant for the user.
func describe(err error) error {
	if session.Kind(err) == nil {
		return err
	}
	return errors.New(session.Message(err))
}

func displayAppname(w io.Writer, appname string) {
	if appname == "" {
		appname = "logdash"
	}
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprint(w, myFigure.String())
	fmt.Fprintln(w)
}
