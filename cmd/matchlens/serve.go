package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"matchlens/ingest-service/internal/httpapi"
	"matchlens/ingest-service/internal/scheduler"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP adapter and the scheduled refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			sched := scheduler.New(a.service, scheduler.Config{
				Spec:         cfg.Ingest.Schedule,
				Competitions: cfg.Ingest.Competitions,
				Concurrency:  cfg.Ingest.Concurrency,
			}, logger)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      httpapi.NewHandler(a.service, a.store, logger).Routes(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", srv.Addr, "version", version)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http shutdown", "err", err)
			}
			sched.Stop(shutdownCtx)
			logger.Info("stopped")
			return nil
		},
	}
}
