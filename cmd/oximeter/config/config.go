// Package config parses the oximeter service configuration.
//
// Values come from command-line flags with environment variables as
// fallbacks; flags take precedence, then environment, then defaults.
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	pipeline, err := ppg.NewPipeline(cfg.Sampling, cfg.MaxSamples)
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/HatiCode/pulseox/pkg/ppg"
	"github.com/HatiCode/pulseox/pkg/tls"
)

// Config holds all oximeter configuration.
type Config struct {
	Listen       string
	GRPCListen   string
	LogFormat    string
	LogLevel     string
	MaxSamples   int
	MaxBodyBytes int64

	Storage        string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SnapshotTTL    time.Duration
	PublishTimeout time.Duration

	RatioFallback bool
	Sampling      ppg.Config

	TLS tls.Config
}

// ParseFlags parses os.Args and the environment, exiting on invalid input.
func ParseFlags() *Config {
	cfg, err := Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Parse registers the oximeter flags on fs, parses args and validates the
// result.
func Parse(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	def := ppg.DefaultConfig()

	fs.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":5000"), "HTTP listen address")
	fs.StringVar(&cfg.GRPCListen, "grpc-listen", getEnv("GRPC_LISTEN", ":5001"), "gRPC health listen address (empty disables)")

	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	fs.IntVar(&cfg.MaxSamples, "max-samples", getEnvInt("MAX_SAMPLES", 100000), "Maximum samples per submission (0 disables)")
	fs.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", int64(getEnvInt("MAX_BODY_BYTES", 4<<20)), "Maximum request body size in bytes")

	fs.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Snapshot store: memory or redis")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	fs.DurationVar(&cfg.SnapshotTTL, "snapshot-ttl", getEnvDuration("SNAPSHOT_TTL", 5*time.Minute), "Published snapshot TTL")
	fs.DurationVar(&cfg.PublishTimeout, "publish-timeout", getEnvDuration("PUBLISH_TIMEOUT", 2*time.Second), "Snapshot publish timeout")

	fs.BoolVar(&cfg.RatioFallback, "ratio-fallback", getEnvBool("RATIO_FALLBACK", false), "Use the unfiltered mean when every ratio is an outlier")

	fs.DurationVar(&cfg.Sampling.SampleInterval, "sample-interval", getEnvDuration("SAMPLE_INTERVAL", def.SampleInterval), "Time between samples")
	fs.IntVar(&cfg.Sampling.TrimHead, "trim-head", getEnvInt("TRIM_HEAD", def.TrimHead), "Samples discarded at the start of a trace")
	fs.IntVar(&cfg.Sampling.TrimTail, "trim-tail", getEnvInt("TRIM_TAIL", def.TrimTail), "Samples discarded at the end of a trace")
	fs.Float64Var(&cfg.Sampling.HighPassHz, "high-pass", getEnvFloat("HIGH_PASS_HZ", def.HighPassHz), "High-pass cutoff in Hz")
	fs.Float64Var(&cfg.Sampling.LowPassHz, "low-pass", getEnvFloat("LOW_PASS_HZ", def.LowPassHz), "Low-pass cutoff in Hz")
	fs.Float64Var(&cfg.Sampling.DCBias, "dc-bias", getEnvFloat("DC_BIAS", def.DCBias), "Offset added to the filtered trace")
	fs.Float64Var(&cfg.Sampling.ProminenceFactor, "prominence-factor", getEnvFloat("PROMINENCE_FACTOR", def.ProminenceFactor), "Minimum peak prominence in standard deviations")
	fs.IntVar(&cfg.Sampling.Precision, "precision", getEnvInt("PRECISION", def.Precision), "Decimal places kept when decoding samples")

	fs.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable TLS for HTTP and gRPC")
	fs.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	fs.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	fs.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "CA file; when set clients must present a certificate")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address cannot be empty")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.MaxSamples < 0 {
		return errors.New("max samples cannot be negative")
	}
	if c.MaxBodyBytes < 0 {
		return errors.New("max body bytes cannot be negative")
	}
	if c.Storage != "memory" && c.Storage != "redis" {
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}
	if c.Storage == "redis" && c.RedisAddr == "" {
		return errors.New("redis address is required when storage=redis")
	}
	if c.SnapshotTTL <= 0 {
		return errors.New("snapshot TTL must be > 0")
	}
	if c.PublishTimeout <= 0 {
		return errors.New("publish timeout must be > 0")
	}
	if err := c.Sampling.Validate(); err != nil {
		return fmt.Errorf("sampling: %w", err)
	}
	if c.MaxSamples > 0 && c.MaxSamples < c.Sampling.MinSamples() {
		return fmt.Errorf("max samples %d is below the %d samples a trace needs", c.MaxSamples, c.Sampling.MinSamples())
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
