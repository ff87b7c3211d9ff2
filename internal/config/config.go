// Package config reads the process configuration once at startup. The returned
// value is passed by value to constructors and never mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apppayment "github.com/JulianR23/Vertex-Store/internal/application/payment"
	"github.com/JulianR23/Vertex-Store/internal/domain/pricing"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/gateway"
	"github.com/JulianR23/Vertex-Store/internal/infrastructure/gormstore"
	"github.com/JulianR23/Vertex-Store/internal/pkg/logging"
)

// DriverMemory keeps every repository in process memory with the catalog pre-seeded.
const DriverMemory = "memory"

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration

	Log logging.Options
	DB  gormstore.Config

	// JournalPath is the bolt file holding processed webhook events.
	JournalPath string

	Fees            pricing.FeeSchedule
	ReferencePrefix string

	Gateway      gateway.Config
	IntegrityKey string
	Poller       apppayment.PollerConfig
}

// FromEnv populates a Config with defaults that can be overridden via environment variables.
func FromEnv() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	e := env{getenv: getenv}
	cfg := Config{
		Addr:            e.str("HTTP_ADDR", ":8080"),
		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Log: logging.Options{
			Service: e.str("SERVICE_NAME", "vertex-store"),
			Env:     e.str("ENV", "dev"),
			Level:   e.str("LOG_LEVEL", "info"),
			File:    e.str("LOG_FILE", ""),
		},
		DB: gormstore.Config{
			Driver:          e.str("DB_DRIVER", gormstore.DriverSQLite),
			User:            e.str("MYSQL_USER", "vertex"),
			Password:        e.str("MYSQL_PASSWORD", "vertex"),
			Host:            e.str("MYSQL_HOST", "127.0.0.1"),
			Port:            e.str("MYSQL_PORT", "3306"),
			Database:        e.str("MYSQL_DATABASE", "vertex_store"),
			Params:          e.str("MYSQL_PARAMS", "charset=utf8mb4&parseTime=True&loc=UTC"),
			SQLitePath:      e.str("SQLITE_PATH", "data/vertex-store.db"),
			MaxOpenConns:    e.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    e.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		JournalPath: e.str("JOURNAL_PATH", "data/webhook-journal.db"),
		Fees: pricing.FeeSchedule{
			BaseFee:     e.integer64("BASE_FEE", 3_000_000),
			DeliveryFee: e.integer64("DELIVERY_FEE", 2_000_000),
			Currency:    strings.ToUpper(e.str("CURRENCY", "COP")),
		},
		ReferencePrefix: e.str("REFERENCE_PREFIX", "VS"),
		Gateway: gateway.Config{
			BaseURL:    strings.TrimRight(e.str("GATEWAY_BASE_URL", "https://sandbox.wompi.co/v1"), "/"),
			PublicKey:  e.str("GATEWAY_PUBLIC_KEY", ""),
			PrivateKey: e.str("GATEWAY_PRIVATE_KEY", ""),
			Timeout:    e.duration("GATEWAY_TIMEOUT", 10*time.Second),
		},
		IntegrityKey: e.str("GATEWAY_INTEGRITY_KEY", ""),
		Poller: apppayment.PollerConfig{
			Interval:    e.duration("POLL_INTERVAL", time.Minute),
			MinAge:      e.duration("POLL_MIN_AGE", 2*time.Minute),
			Concurrency: e.integer("POLL_CONCURRENCY", 4),
			BatchSize:   e.integer("POLL_BATCH_SIZE", 50),
		},
	}
	cfg.Poller.CallTimeout = cfg.Gateway.Timeout

	if len(e.errs) > 0 {
		return Config{}, errors.Join(e.errs...)
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if err := c.Fees.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.ReferencePrefix == "" {
		errs = append(errs, errors.New("config: REFERENCE_PREFIX is required"))
	}
	switch c.DB.Driver {
	case gormstore.DriverMySQL, gormstore.DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("config: unsupported DB_DRIVER %q", c.DB.Driver))
	}
	if c.Gateway.BaseURL == "" {
		errs = append(errs, errors.New("config: GATEWAY_BASE_URL is required"))
	}
	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("config: GATEWAY_TIMEOUT must be positive"))
	}
	if c.IntegrityKey == "" {
		errs = append(errs, errors.New("config: GATEWAY_INTEGRITY_KEY is required"))
	}
	if c.Poller.Interval < 0 || c.Poller.MinAge < 0 {
		errs = append(errs, errors.New("config: poller durations must not be negative"))
	}
	if c.Poller.Concurrency < 1 {
		errs = append(errs, errors.New("config: POLL_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) str(key, fallback string) string {
	if v := strings.TrimSpace(e.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (e *env) integer64(key string, fallback int64) int64 {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return fallback
	}
	return n
}

func (e *env) integer(key string, fallback int) int {
	return int(e.integer64(key, int64(fallback)))
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v := e.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s: %w", key, err))
		return fallback
	}
	return d
}
