package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress       string
	DatabaseURI      string
	AuditDatabaseURI string
	RedisAddr        string

	GatewayBaseURL        string
	GatewayProjectSlug    string
	GatewayAPIKey         string
	GatewayCheckoutDomain string
	WebhookSecret         string

	FeeBasisPoints int64
	FeeFixed       int64

	PaymentWindow   time.Duration
	SweepInterval   time.Duration
	SweepBatchSize  int
	WorkerPoolSize  int
	ShutdownTimeout time.Duration
	StatusCacheTTL  time.Duration

	// BalanceFallback permits balance-only checkout when the gateway health
	// probe fails instead of rejecting the checkout outright.
	BalanceFallback bool

	AdminIDs []int64
}

const (
	defaultRunAddress      = ":8080"
	defaultGatewayBaseURL  = "https://app.pakasir.com"
	defaultCheckoutDomain  = "https://pots.my.id"
	defaultFeeBasisPoints  = 70
	defaultFeeFixed        = 310
	defaultPaymentWindow   = 10 * time.Minute
	defaultSweepInterval   = 30 * time.Second
	defaultSweepBatchSize  = 100
	defaultWorkerPoolSize  = 4
	defaultShutdownTimeout = 10 * time.Second
	defaultStatusCacheTTL  = 5 * time.Minute
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:            getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:           getString(lookup, "DATABASE_URI", ""),
		AuditDatabaseURI:      getString(lookup, "AUDIT_DATABASE_URI", ""),
		RedisAddr:             getString(lookup, "REDIS_ADDR", ""),
		GatewayBaseURL:        getString(lookup, "GATEWAY_BASE_URL", defaultGatewayBaseURL),
		GatewayProjectSlug:    getString(lookup, "GATEWAY_PROJECT_SLUG", ""),
		GatewayAPIKey:         getString(lookup, "GATEWAY_API_KEY", ""),
		GatewayCheckoutDomain: getString(lookup, "GATEWAY_CHECKOUT_DOMAIN", defaultCheckoutDomain),
		WebhookSecret:         getString(lookup, "WEBHOOK_SECRET", ""),
		FeeBasisPoints:        getInt64(lookup, "FEE_BASIS_POINTS", defaultFeeBasisPoints),
		FeeFixed:              getInt64(lookup, "FEE_FIXED", defaultFeeFixed),
		PaymentWindow:         getDuration(lookup, "PAYMENT_WINDOW", defaultPaymentWindow),
		SweepInterval:         getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		SweepBatchSize:        getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatchSize),
		WorkerPoolSize:        getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:       getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		StatusCacheTTL:        getDuration(lookup, "STATUS_CACHE_TTL", defaultStatusCacheTTL),
		BalanceFallback:       getBool(lookup, "GATEWAY_DOWN_BALANCE_FALLBACK", false),
	}

	if ids, ok := lookup("ADMIN_USER_IDS"); ok {
		parsed, err := parseAdminIDs(ids)
		if err != nil {
			return nil, err
		}
		cfg.AdminIDs = parsed
	}

	fs := flag.NewFlagSet("quickcart", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		paymentWindowStr = cfg.PaymentWindow.String()
		sweepIntervalStr = cfg.SweepInterval.String()
		shutdownStr      = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN for operational data")
	fs.StringVar(&cfg.AuditDatabaseURI, "audit-d", cfg.AuditDatabaseURI, "PostgreSQL DSN for the audit store")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address for the session cache (optional)")
	fs.StringVar(&cfg.GatewayBaseURL, "gateway", cfg.GatewayBaseURL, "Payment gateway base URL")
	fs.StringVar(&cfg.GatewayProjectSlug, "project", cfg.GatewayProjectSlug, "Payment gateway project slug")
	fs.StringVar(&cfg.GatewayAPIKey, "api-key", cfg.GatewayAPIKey, "Payment gateway API key")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "Secret for webhook signature validation")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent sweep workers")
	fs.IntVar(&cfg.SweepBatchSize, "sweep-batch", cfg.SweepBatchSize, "Maximum orders per sweep batch")
	fs.StringVar(&paymentWindowStr, "payment-window", paymentWindowStr, "How long an unpaid order stays pending")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between expiry sweeps")
	fs.StringVar(&shutdownStr, "shutdown-timeout", shutdownStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.PaymentWindow, err = time.ParseDuration(paymentWindowStr); err != nil {
		return nil, fmt.Errorf("invalid payment window: %w", err)
	}

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("WEBHOOK_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook secret file: %w", err)
		}
		cfg.WebhookSecret = strings.TrimSpace(string(content))
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}

	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = defaultPaymentWindow
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.FeeBasisPoints < 0 {
		return nil, fmt.Errorf("fee basis points must not be negative")
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.AuditDatabaseURI == "" {
		return nil, fmt.Errorf("audit database URI must be provided")
	}

	if cfg.GatewayProjectSlug == "" {
		return nil, fmt.Errorf("gateway project slug must be provided")
	}

	if cfg.GatewayAPIKey == "" {
		return nil, fmt.Errorf("gateway API key must be provided")
	}

	return cfg, nil
}

func parseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getInt64(lookup envLookup, key string, def int64) int64 {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
