package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tendant/simple-storefront/pkg/storefront/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	serverConfig, err := config.Load(config.WithEnv(""))
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	ctx := context.Background()
	srv, err := serverConfig.BuildServer(ctx, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverConfig.Port),
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("storefront server starting",
			"port", serverConfig.Port,
			"env", serverConfig.Environment,
			"provider", serverConfig.Provider,
			"cart_store", serverConfig.CartStore,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Queued cart mutations are still sent to the provider before exit.
	if err := srv.Service.Drain(shutdownCtx); err != nil {
		logger.Warn("cart mutations still pending at shutdown", "err", err)
		return nil
	}
	if err := srv.Service.Close(); err != nil {
		return fmt.Errorf("failed to close service: %w", err)
	}

	logger.Info("server exiting")
	return nil
}
