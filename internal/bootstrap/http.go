package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subsentry/subsentry-api/config"
	httpx "github.com/subsentry/subsentry-api/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil || cfg.Services == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Transitions: cfg.Services.Transitions,
		Claims:      cfg.Services.Claims,
		Payments:    cfg.Services.Payments,
		Ledger:      cfg.Services.Ledger,
		Metrics:     cfg.Services.Metrics,
		Logger:      logger,
	})

	addr := ":8080"
	if cfg.Config != nil && cfg.Config.HTTP.Addr != "" {
		addr = cfg.Config.HTTP.Addr
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// RunWithShutdown blocks until SIGINT or SIGTERM, then drains the HTTP
// server and closes the metrics sink.
func RunWithShutdown(cfg *HTTPServerConfig) error {
	server := StartHTTPServer(cfg)
	if server == nil {
		return errors.New("http server configuration is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Services != nil && cfg.Services.MetricsSink != nil {
		if err := cfg.Services.MetricsSink.Close(); err != nil {
			logger.Warn("close metrics sink failed", "error", err)
		}
	}

	logger.Info("HTTP server stopped")
	return nil
}
