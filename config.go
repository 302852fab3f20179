package pgtable

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultMigrationTable = "migrations"
	DefaultAcquireTimeout = 10 * time.Second
	DefaultPort           = 5432
)

// Config holds connection parameters. If URL is set, it is used as the
// connection string and Host, Port, Database, User, Password and SSLMode
// are ignored.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	URL      string

	// MaxConns and MinConns size the pool; zero keeps pgxpool defaults.
	MaxConns int32
	MinConns int32

	// AcquireTimeout bounds how long Acquire waits for a pooled
	// connection. Defaults to DefaultAcquireTimeout.
	AcquireTimeout time.Duration

	// MigrationTable is the bookkeeping table of applied migrations.
	// Defaults to DefaultMigrationTable.
	MigrationTable string
}

// ConfigFromEnv reads DBCONNSTR as the connection URL. If it is empty,
// PGHOST, PGPORT, PGDATABASE, PGUSER, PGPASSWORD and PGSSLMODE are used.
func ConfigFromEnv() Config {
	cfg := Config{
		URL:      os.Getenv("DBCONNSTR"),
		Host:     os.Getenv("PGHOST"),
		Database: os.Getenv("PGDATABASE"),
		User:     os.Getenv("PGUSER"),
		Password: os.Getenv("PGPASSWORD"),
		SSLMode:  os.Getenv("PGSSLMODE"),
	}
	if port, err := strconv.Atoi(os.Getenv("PGPORT")); err == nil {
		cfg.Port = port
	}
	return cfg
}

func (c Config) migrationTable() string {
	if c.MigrationTable == "" {
		return DefaultMigrationTable
	}
	return c.MigrationTable
}

func (c Config) acquireTimeout() time.Duration {
	if c.AcquireTimeout <= 0 {
		return DefaultAcquireTimeout
	}
	return c.AcquireTimeout
}

// Validate checks the configuration without connecting. Returned errors
// match ErrConfig.
func (c Config) Validate() error {
	if c.URL == "" {
		if c.Host == "" {
			return newError("config", ErrConfig, fmt.Errorf("host is required"))
		}
		if c.Database == "" {
			return newError("config", ErrConfig, fmt.Errorf("database name is required"))
		}
		if c.User == "" {
			return newError("config", ErrConfig, fmt.Errorf("user is required"))
		}
		if c.Port < 0 || c.Port > 65535 {
			return newError("config", ErrConfig, fmt.Errorf("invalid port %d", c.Port))
		}
	}
	if c.MaxConns < 0 || c.MinConns < 0 || (c.MaxConns > 0 && c.MinConns > c.MaxConns) {
		return newError("config", ErrConfig, fmt.Errorf("invalid pool size min %d max %d", c.MinConns, c.MaxConns))
	}
	if c.MigrationTable != "" && len(c.MigrationTable) > 63 {
		return newError("config", ErrConfig, fmt.Errorf("migration table name too long"))
	}
	return nil
}

// ConnString returns the connection URL.
func (c Config) ConnString() string {
	if c.URL != "" {
		return c.URL
	}
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + strconv.Itoa(port),
		Path:   "/" + c.Database,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// PoolConfig validates the configuration and converts it to a pgxpool
// configuration.
func (c Config) PoolConfig() (*pgxpool.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pc, err := pgxpool.ParseConfig(c.ConnString())
	if err != nil {
		return nil, newError("config", ErrConfig, err)
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		pc.MinConns = c.MinConns
	}
	return pc, nil
}
