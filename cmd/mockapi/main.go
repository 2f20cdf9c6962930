package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/internal/logging"
	"github.com/jrsteele09/go-log-dashboard/mockapi"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	var demoLogs int
	cmd := &cobra.Command{
		Use:          "mockapi",
		Short:        "Run the in-memory log dashboard API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.New(), demoLogs)
		},
	}
	cmd.Flags().IntVar(&demoLogs, "demo", 0, fmt.Sprintf("seed demo users, presets and this many logs (e.g. %d)", mockapi.DefaultDemoLogs))

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(c config.Config, demoLogs int) (returnError error) {
	log := logging.New(c.GetLogLevel(), c.GetEnv())
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("mockapi.panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())
	api := mockapi.New(c, mockapi.WithLogger(log))
	if demoLogs > 0 {
		summary, err := api.SeedDemo(demoLogs, nil)
		if err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		log.Info().Msgf("Demo accounts ready (%d new), password %q", summary.Users, mockapi.DemoPassword)
	}

	server := &http.Server{Addr: c.GetPort(), Handler: api, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(log, server) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	returnError = shutdown(server)
	log.Info().Msg("Server stopped")
	return returnError
}

func listenAndServe(log zerolog.Logger, server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
