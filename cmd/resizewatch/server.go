package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"resizewatch/internal/api"
	"resizewatch/internal/config"
	"resizewatch/internal/logging"
	"resizewatch/internal/metrics"
	"resizewatch/internal/resize"
	"resizewatch/internal/version"
)

const httpServerShutdownTimeout = 5 * time.Second

// runHTTPServer serves the watcher until ctx is cancelled or the listener
// fails, then shuts the server down gracefully.
func runHTTPServer(ctx context.Context, cfg config.Config, watcher *resize.Watcher, registry *metrics.Registry, logger *logging.Logger) error {
	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler: api.NewHandler(api.Options{
			Watcher:        watcher,
			Registry:       registry,
			Logger:         logger,
			AllowedOrigins: cfg.AllowedOrigins,
			Version:        version.Version,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	logger.Info("resizewatch listening", map[string]string{
		"addr": listener.Addr().String(),
	})

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownContext, cancel := context.WithTimeout(context.Background(), httpServerShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownContext); err != nil {
		logger.Warn("http server shutdown failed", map[string]string{"error": err.Error()})
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("http server stopped", nil)
	return nil
}
