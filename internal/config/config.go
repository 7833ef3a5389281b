// Package config handles loading and validating host configuration.
//
// Configuration is loaded from a YAML file with environment variable overrides.
// Environment variables use the FUNCWARE_ prefix (e.g., FUNCWARE_SERVER_PORT).
// FUNCTIONS_CUSTOMHANDLER_PORT, set by the function host, wins over both.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/menezmethod/funcware/telemetry"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "FUNCWARE_"

// Config holds the complete host configuration.
type Config struct {
	Server        Server        `yaml:"server" envPrefix:"SERVER_"`
	Log           Log           `yaml:"log" envPrefix:"LOG_"`
	Observability Observability `yaml:"observability" envPrefix:"OBSERVABILITY_"`
	Auth          Auth          `yaml:"auth" envPrefix:"AUTH_"`
}

// Server configures the HTTP listener.
type Server struct {
	Host         string        `yaml:"host" env:"HOST"`
	Port         int           `yaml:"port" env:"PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// Log configures structured logging.
type Log struct {
	Level       string `yaml:"level" env:"LEVEL"`
	Format      string `yaml:"format" env:"FORMAT"`
	CloudFormat string `yaml:"cloud_format" env:"CLOUD_FORMAT"`
}

// Observability configures tracing and invocation telemetry.
type Observability struct {
	OTelEnabled  bool   `yaml:"otel_enabled" env:"OTEL_ENABLED"`
	OTelEndpoint string `yaml:"otel_endpoint" env:"OTEL_ENDPOINT"`
	ServiceName  string `yaml:"service_name" env:"SERVICE_NAME"`
	LogBehavior  string `yaml:"log_behavior" env:"LOG_BEHAVIOR"`
	Environment  string `yaml:"environment" env:"ENVIRONMENT"`
}

// Auth configures the example functions' authentication and authorization.
type Auth struct {
	// PrincipalHeader must be present for header-authenticated functions.
	PrincipalHeader string `yaml:"principal_header" env:"PRINCIPAL_HEADER"`
	// JWTSecret enables HMAC signature verification. When empty, tokens are
	// decoded without verification.
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	// PolicyModel is a path to a Casbin model file. Empty selects the
	// built-in ACL model.
	PolicyModel string `yaml:"policy_model" env:"POLICY_MODEL"`
	// PolicyFile is a path to a Casbin CSV policy. Empty disables policy
	// authorization.
	PolicyFile string `yaml:"policy_file" env:"POLICY_FILE"`
}

// hostEnv holds variables set by the function host itself.
type hostEnv struct {
	Port int `env:"FUNCTIONS_CUSTOMHANDLER_PORT"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Server: Server{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
		Observability: Observability{
			ServiceName: "funcware",
			LogBehavior: "on_error",
			Environment: "UNDEFINED",
		},
		Auth: Auth{
			PrincipalHeader: "x-ms-client-principal-id",
		},
	}
}

// Load reads configuration from the given YAML file path, then applies
// environment variable overrides. If path is empty, only defaults and
// environment variables are used.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides reads FUNCWARE_* and host environment variables over
// the values already in cfg.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	var host hostEnv
	if err := env.Parse(&host); err != nil {
		return fmt.Errorf("parse host environment: %w", err)
	}
	if host.Port != 0 {
		cfg.Server.Port = host.Port
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Observability.LogBehavior = strings.ToLower(cfg.Observability.LogBehavior)
	return nil
}

// validate checks that the configuration is internally consistent.
func validate(cfg Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", cfg.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Log.Format] {
		errs = append(errs, fmt.Errorf("log.format must be json or text; got %q", cfg.Log.Format))
	}
	validCloud := map[string]bool{"": true, "gcp": true, "gcp_with_resource": true, "azure": true}
	if !validCloud[cfg.Log.CloudFormat] {
		errs = append(errs, fmt.Errorf("log.cloud_format must be empty, gcp, gcp_with_resource, or azure; got %q", cfg.Log.CloudFormat))
	}

	if cfg.Observability.OTelEnabled && strings.TrimSpace(cfg.Observability.OTelEndpoint) == "" {
		errs = append(errs, errors.New("observability.otel_endpoint is required when otel_enabled is true"))
	}
	if cfg.Observability.ServiceName == "" {
		errs = append(errs, errors.New("observability.service_name is required"))
	}
	if _, err := telemetry.ParseLogBehavior(cfg.Observability.LogBehavior); err != nil {
		errs = append(errs, fmt.Errorf("observability.log_behavior: %w", err))
	}

	if cfg.Auth.PrincipalHeader == "" {
		errs = append(errs, errors.New("auth.principal_header is required"))
	}
	if cfg.Auth.PolicyModel != "" && cfg.Auth.PolicyFile == "" {
		errs = append(errs, errors.New("auth.policy_file is required when auth.policy_model is set"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address as "host:port".
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Behavior returns the parsed telemetry log behavior.
func (o Observability) Behavior() telemetry.LogBehavior {
	b, _ := telemetry.ParseLogBehavior(o.LogBehavior)
	return b
}
