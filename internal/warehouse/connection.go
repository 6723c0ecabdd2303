// Package warehouse is the record source and sink: sqlx over either a
// Snowflake or a Postgres DSN. Engines never see it; the orchestrator loads
// snapshots through Source and persists decisions through Sink. Read
// failures are fatal to a run.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"                   // postgres driver
	_ "github.com/snowflakedb/gosnowflake" // snowflake driver
	"github.com/rs/zerolog"
)

// Config selects the driver and pool shape.
type Config struct {
	Driver          string        `yaml:"driver"` // "snowflake" | "postgres"
	DSN             string        `yaml:"dsn" env:"WAREHOUSE_DSN"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// DefaultConfig returns pool defaults; driver and DSN must come from config.
func DefaultConfig() Config {
	return Config{
		Driver:          "postgres",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		QueryTimeout:    30 * time.Second,
	}
}

// SnowflakeDSN builds the gosnowflake DSN from its parts:
// user:password@account/database/schema?warehouse=xxx
func SnowflakeDSN(user, password, account, database, schema, wh string) string {
	dsn := fmt.Sprintf("%s:%s@%s/%s/%s", user, password, account, database, schema)
	if wh != "" {
		dsn += "?warehouse=" + wh
	}
	return dsn
}

// Client owns the connection and hands out the repositories.
type Client struct {
	db  *sqlx.DB
	cfg Config
	log zerolog.Logger
}

// NewClient opens and pings the warehouse.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("warehouse DSN is required")
	}
	if cfg.Driver != "snowflake" && cfg.Driver != "postgres" {
		return nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	log.Info().Str("driver", cfg.Driver).Msg("warehouse connected")
	return &Client{db: db, cfg: cfg, log: log}, nil
}

// NewClientFromDB wraps an existing connection, for tests.
func NewClientFromDB(db *sqlx.DB, cfg Config, log zerolog.Logger) *Client {
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	return &Client{db: db, cfg: cfg, log: log}
}

// Source returns the read side.
func (c *Client) Source() *SQLSource {
	return &SQLSource{db: c.db, timeout: c.cfg.QueryTimeout}
}

// Sink returns the write side.
func (c *Client) Sink() *SQLSink {
	return &SQLSink{db: c.db, timeout: c.cfg.QueryTimeout}
}

// Ping tests connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the pool.
func (c *Client) Close() error {
	return c.db.Close()
}
