package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourorg/musigent/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{Use: "serve", Short: "Start HTTP service", RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = host
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}

		a, err := newApp(cfg, nil)
		if err != nil {
			return err
		}
		srv, err := server.New(cfg, a.pipeline, a.metrics, a.logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		a.logger.WithField("ledger", a.ledger.Path()).Info("musigent ready")
		return srv.ListenAndServe(ctx, fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	}}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVar(&port, "port", 8000, "server port")
	return cmd
}
