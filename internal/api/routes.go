// Package api serves a watcher over HTTP: the current sample, its history,
// counters in Prometheus text format and a websocket stream of resize
// notifications.
package api

import (
	"net/http"

	"resizewatch/internal/logging"
	"resizewatch/internal/metrics"
	"resizewatch/internal/resize"
)

// Options configures the handler.
type Options struct {
	Watcher        *resize.Watcher
	Registry       *metrics.Registry
	Logger         *logging.Logger
	AllowedOrigins []string
	Version        string
}

type server struct {
	watcher        *resize.Watcher
	registry       *metrics.Registry
	logger         *logging.Logger
	allowedOrigins []string
	version        string
}

// NewHandler returns the HTTP surface for one watcher.
func NewHandler(options Options) http.Handler {
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	s := &server{
		watcher:        options.Watcher,
		registry:       registry,
		logger:         logger.With(map[string]string{"component": "api"}),
		allowedOrigins: options.AllowedOrigins,
		version:        options.Version,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sample", s.handleSample)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /ws/resize", s.handleResizeStream)
	return mux
}
