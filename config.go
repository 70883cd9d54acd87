package pgengine

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Config holds engine configuration for one logical database.
type Config struct {
	// Connection
	URL      string // PostgreSQL connection string (required)
	Database string // logical database name, also the database to auto-create (required)

	// Bootstrap connection for database creation/deletion. The URL must
	// point at the server without selecting the target database.
	AdminURL   string
	Owner      string // role owning an auto-created database (optional)
	AutoCreate bool   // create the database on first connect if it does not exist

	// Pool settings
	MinConns int32 // minimum pool size (default: 1)
	MaxConns int32 // maximum pool size (default: 30)

	// Timeouts
	AcquireTimeout time.Duration // max wait for a pooled connection (0 = block)
	CloseTimeout   time.Duration // graceful close bound before forced termination (default: 10s)

	// Observability (all optional)
	Logger          *slog.Logger          // Structured logger
	LogQueries      bool                  // Log all queries
	LogSlowQueries  time.Duration         // Log queries slower than this (0 = disabled)
	MetricsRegistry prometheus.Registerer // Prometheus registry for metrics
	Tracer          trace.Tracer          // OpenTelemetry tracer
}

// DefaultConfig returns sensible defaults for the given connection string
// and logical database name.
func DefaultConfig(url, database string) Config {
	return Config{
		URL:          url,
		Database:     database,
		MinConns:     1,
		MaxConns:     30,
		CloseTimeout: 10 * time.Second,
	}
}

// applyDefaults fills in zero values with defaults
func (c *Config) applyDefaults() {
	if c.MinConns == 0 {
		c.MinConns = 1
	}
	if c.MaxConns == 0 {
		c.MaxConns = 30
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = 10 * time.Second
	}
}

// WithLogger enables query logging
func (c Config) WithLogger(logger *slog.Logger) Config {
	c.Logger = logger
	c.LogQueries = true
	return c
}

// WithSlowQueryLog logs queries slower than the threshold
func (c Config) WithSlowQueryLog(threshold time.Duration) Config {
	c.LogSlowQueries = threshold
	return c
}

// WithMetrics enables Prometheus metrics
func (c Config) WithMetrics(registry prometheus.Registerer) Config {
	c.MetricsRegistry = registry
	return c
}

// WithTracing enables OpenTelemetry tracing
func (c Config) WithTracing(tracer trace.Tracer) Config {
	c.Tracer = tracer
	return c
}

// WithAutoCreate enables database creation on first connect, using the
// bootstrap connection at adminURL.
func (c Config) WithAutoCreate(adminURL string) Config {
	c.AdminURL = adminURL
	c.AutoCreate = true
	return c
}
