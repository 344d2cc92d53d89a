package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nickyhof/TableDB"
	"github.com/nickyhof/TableDB/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Version is set at build time via -ldflags
var Version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "tabledb-server",
		Short:        "Serve a TableDB registry over TCP and HTTP",
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Config file (default ./tabledb.yaml)")
	config.RegisterFlags(cmd.Flags())
	config.RegisterServerFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := config.NewLogger(cfg.Log, os.Stderr)

	instance, err := TableDB.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}

	opts := []ServerOption{WithLogger(logger)}
	if cfg.Auth.Enabled {
		opts = append(opts, WithAuth(cfg.Auth))
	}
	server := NewServer(instance, cfg.Identity, opts...)

	if err := server.Start(cfg.Server.Addr); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		return server.Stop()
	})

	if cfg.Server.HTTPAddr != "" {
		httpServer := &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
