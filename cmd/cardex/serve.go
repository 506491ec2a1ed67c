package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cardex/internal/metrics"
	chiTransport "github.com/kailas-cloud/cardex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/cardex/internal/usecase/health"
	"github.com/kailas-cloud/cardex/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket API",
	Long: `serve loads the catalog in the background and answers requests on the
configured port. Searches issued before the first load completes wait for it.
A directory feed with watch enabled is reloaded whenever its manifest changes.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	cfg, logger := a.cfg, a.logger

	logger.Info("Starting cardex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("feed", a.source.Name()),
	)

	go a.reload(ctx, "startup")
	if a.dir != nil && cfg.Feed.Watch {
		go func() {
			debounce := time.Duration(cfg.Feed.WatchDebounceMs) * time.Millisecond
			if err := a.dir.Watch(ctx, debounce, func() { a.reload(ctx, "watch") }); err != nil {
				logger.Error("Feed watcher stopped", zap.Error(err))
			}
		}()
	}

	healthSvc := healthuc.New(a.store, a.catalog)
	server := chiTransport.NewServer(a.catalog, a.loader, healthSvc,
		func() chiTransport.Worker { return a.newWorker() }, logger,
	).WithLimits(chiTransport.Limits{
		SuggestLimit:   cfg.Search.SuggestLimit,
		LoadWait:       time.Duration(cfg.HTTP.LoadWaitMs) * time.Millisecond,
		InboxSize:      cfg.Worker.InboxSize,
		MaxMessageSize: int64(cfg.Worker.MaxMessageSize),
	})

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}
	srv.RegisterOnShutdown(server.CloseSessions)

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// reload runs a load cycle outside any request. The loader logs the cycle;
// only the outcome is reported here.
func (a *app) reload(ctx context.Context, reason string) {
	report, err := a.loader.Load(ctx, nil)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error("Catalog load failed", zap.String("reason", reason), zap.Error(err))
		}
		return
	}
	if w := report.Warning(); w != nil {
		a.logger.Warn("Catalog loaded with warnings", zap.String("reason", reason), zap.Error(w))
	}
}
