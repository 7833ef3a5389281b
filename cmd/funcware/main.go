package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/casbin/casbin/v2"

	"github.com/menezmethod/funcware/auth"
	"github.com/menezmethod/funcware/internal/config"
	"github.com/menezmethod/funcware/internal/functions"
	"github.com/menezmethod/funcware/internal/logging"
	"github.com/menezmethod/funcware/internal/observability"
	"github.com/menezmethod/funcware/internal/server"
	"github.com/menezmethod/funcware/internal/version"
	"github.com/menezmethod/funcware/telemetry"
)

// decodedTokenTTL bounds how long a decoded token is reused.
const decodedTokenTTL = 5 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional, env vars work without it)")
	flag.Parse()

	// Load configuration: defaults -> YAML file -> env vars.
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stdout, logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cfg.Log.CloudFormat)
	logger.Info("starting funcware", "version", version.String())

	// Optional OpenTelemetry export. Without it invocation telemetry is off.
	var tp *observability.TracerProvider
	telemetryOpts := []telemetry.Option{
		telemetry.WithEnvironment(cfg.Observability.Environment),
		telemetry.WithDisabled(!cfg.Observability.OTelEnabled),
	}
	if cfg.Observability.OTelEnabled {
		tp, err = observability.NewTracerProvider(context.Background(), cfg.Observability)
		if err != nil {
			logger.Error("otel tracer provider failed", "err", err)
			os.Exit(1)
		}
		telemetryOpts = append(telemetryOpts, telemetry.WithTracerProvider(tp.Provider()))
		logger.Info("opentelemetry tracing enabled", "endpoint", cfg.Observability.OTelEndpoint)
	}

	enforcer, err := newEnforcer(cfg.Auth)
	if err != nil {
		logger.Error("failed to load policy", "err", err)
		os.Exit(1)
	}

	deps := functions.Deps{
		Logger:          logger,
		Telemetry:       telemetry.New(telemetryOpts...),
		LogBehavior:     cfg.Observability.Behavior(),
		PrincipalHeader: cfg.Auth.PrincipalHeader,
		Decoder:         newDecoder(cfg.Auth, logger),
	}
	if enforcer != nil {
		deps.Enforcer = enforcer
	}

	srv := server.New(cfg, functions.All(deps), logger)
	if tp != nil {
		srv.Handler = observability.HTTPHandler(srv.Handler, cfg.Observability.ServiceName)
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	server.Shutdown(ctx, srv, logger)
	if tp != nil {
		_ = tp.Shutdown(ctx)
	}
	logger.Info("server stopped")
}

func newDecoder(cfg config.Auth, logger *slog.Logger) auth.Decoder {
	decoder := auth.UnverifiedDecoder()
	if cfg.JWTSecret != "" {
		decoder = auth.HMACDecoder([]byte(cfg.JWTSecret), 30*time.Second)
	} else {
		logger.Warn("no jwt secret configured, tokens are decoded without signature verification")
	}
	return auth.CachingDecoder(decoder, decodedTokenTTL)
}

// newEnforcer returns nil when no policy file is configured.
func newEnforcer(cfg config.Auth) (*casbin.Enforcer, error) {
	if cfg.PolicyFile == "" {
		return nil, nil
	}
	var modelText string
	if cfg.PolicyModel != "" {
		data, err := os.ReadFile(cfg.PolicyModel)
		if err != nil {
			return nil, fmt.Errorf("read policy model: %w", err)
		}
		modelText = string(data)
	}
	return auth.NewEnforcer(modelText, cfg.PolicyFile)
}
