package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Koded0214h/MicroServices/config"
	"github.com/Koded0214h/MicroServices/logger"
)

// StartServer serves the Prometheus scrape endpoint until the context is
// cancelled. Serve failures are reported on errChan.
func StartServer(ctx context.Context, cfg config.MetricsConfig, errChan chan error) {
	mux := http.NewServeMux()
	mux.Handle(cfg.GetPath(), promhttp.Handler())

	server := &http.Server{
		Addr:    cfg.GetAddr(),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down metrics server", "error", err)
		}
	}()

	logger.Info("metrics server listening", "addr", cfg.GetAddr(), "path", cfg.GetPath())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errChan <- fmt.Errorf("metrics server failed: %w", err)
	}
}
