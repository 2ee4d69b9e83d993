package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tbxark/interviewagent/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the questionnaire API over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.conf.ValidateServer(); err != nil {
		return err
	}

	if a.conf.Session.TTL > 0 {
		interval := a.conf.Session.SweepInterval
		if interval <= 0 {
			interval = time.Minute
		}
		go a.store.Run(ctx, interval)
	}

	return server.Serve(ctx, server.Config{
		Addr:              a.conf.Server.Addr,
		Dialogue:          a.engine,
		CookieSecret:      []byte(a.conf.Server.CookieSecret),
		CookieMaxAge:      a.conf.Session.TTL,
		SecureCookies:     a.conf.Server.SecureCookies,
		DefaultLanguage:   a.conf.Questions.DefaultLanguage,
		ReadHeaderTimeout: a.conf.Server.ReadHeaderTimeout,
	})
}
