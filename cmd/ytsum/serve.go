package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ytsum/ytsum/server"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(configPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the summarization HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath, *debug)
			if err != nil {
				return err
			}

			secrets, err := buildSecrets(cfg, "")
			if err != nil {
				return err
			}
			p, err := buildPipeline(cfg, secrets)
			if err != nil {
				return err
			}

			opts := server.Options{
				Config:     cfg.Server,
				Summarizer: p.gemini,
				Cache:      p.cache,
			}
			if p.notes != nil {
				opts.Notes = p.notes
			}
			if p.mail != nil {
				opts.Mail = p.mail
			}

			srv, err := server.New(opts)
			if err != nil {
				return err
			}

			httpServer := srv.NewHTTPServer()
			metricsServer := server.NewMetricsServer(cfg.Server.MetricsAddr)

			errCh := make(chan error, 2)
			go func() {
				slog.Info("HTTP server listening", "addr", cfg.Server.Addr)
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			go func() {
				slog.Info("metrics server listening", "addr", cfg.Server.MetricsAddr)
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("HTTP server shutdown failed", "error", err)
			}
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics server shutdown failed", "error", err)
			}
			return nil
		},
	}
}
