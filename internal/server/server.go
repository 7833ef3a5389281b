// Package server configures and runs the custom-handler HTTP server.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/menezmethod/funcware/internal/config"
	"github.com/menezmethod/funcware/internal/functions"
)

// New creates a configured *http.Server with every function and the
// operational endpoints registered.
func New(cfg config.Config, fns []functions.Function, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      Routes(fns, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

// Routes builds the mux. Function routes run behind, outermost first:
// InvocationID → Recover → Metrics → Logging.
func Routes(fns []functions.Function, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", Health())
	mux.HandleFunc("GET /version", VersionInfo())
	mux.Handle("GET /metrics", promhttp.Handler())

	for _, fn := range fns {
		mux.Handle(fn.Pattern(), Chain(fn.Handler,
			InvocationID(),
			Recover(logger),
			Metrics(fn.Route),
			Logging(logger.With("function", fn.Name)),
		))
		logger.Debug("function registered", "name", fn.Name, "pattern", fn.Pattern())
	}
	return mux
}

// Shutdown gracefully shuts down the server with the given context.
func Shutdown(ctx context.Context, srv *http.Server, logger *slog.Logger) {
	logger.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}
