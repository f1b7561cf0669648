package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tlstunnel/internal/admin"
	"tlstunnel/internal/config"
	"tlstunnel/internal/logging"
	"tlstunnel/internal/server"
	"tlstunnel/internal/shutdown"
)

var (
	logLevel  string
	adminAddr string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [config-path]",
		Short: "Run the tunnel using the given INI configuration (default ./tunnel.ini)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "./tunnel.ini"
			if len(args) == 1 {
				path = args[0]
			}
			return runServe(cmd, path)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, notice, warning, err")
	cmd.Flags().StringVar(&adminAddr, "admin-listen", "", "bind address for the admin/metrics endpoint; empty disables it")
	return cmd
}

func runServe(cmd *cobra.Command, path string) error {
	log := logging.New(parseLevel(logLevel))

	cfg, err := config.NewReader().Read(path)
	if err != nil {
		return fmt.Errorf("tunnel: load config: %w", err)
	}

	srv, err := server.New(*cfg, log)
	if err != nil {
		return fmt.Errorf("tunnel: build server: %w", err)
	}

	var adminSrv *admin.Server
	if adminAddr != "" {
		registry := prometheus.NewRegistry()
		metrics := admin.NewMetrics(registry)
		srv.SetMetrics(metrics)

		adminSrv = admin.New(admin.Config{Addr: adminAddr, MaxConnections: 64}, srv, registry, log)
		if err := adminSrv.Start(); err != nil {
			return fmt.Errorf("tunnel: start admin endpoint: %w", err)
		}
	}

	handler := shutdown.NewHandler(shutdown.NewOSNotifier())
	ctx, stop := handler.Handle(cmd.Context())
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("tunnel: start: %w", err)
	}

	<-ctx.Done()
	log.Infof("shutdown signal received, draining active sessions")

	if adminSrv != nil {
		_ = adminSrv.Shutdown(context.Background())
	}
	return srv.Shutdown()
}

func parseLevel(s string) logrus.Level {
	switch s {
	case "notice":
		// logging.Logger models NOTICE as Info.
		return logrus.InfoLevel
	case "err":
		return logrus.ErrorLevel
	}
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
