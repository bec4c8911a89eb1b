// Package warehouse hands out authenticated database handles to the rest of
// the service. Two strategies exist: a pool borrowed from the host process
// (Delegated) and a connection opened from an explicit credential bundle for
// every unit of work (Explicit).
package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"

	"sentiment-dashboard/internal/models"
)

// Strategy names accepted in configuration.
const (
	StrategyDelegated   = "delegated"
	StrategyCredentials = "credentials"
)

// Connector hands out a handle for one unit of work. The returned release
// func must be called once the work is done, whatever its outcome.
type Connector interface {
	Acquire(ctx context.Context) (db *sql.DB, release func() error, err error)
	Close() error
}

func noRelease() error { return nil }

// Delegated reuses a long-lived pool owned by the process.
type Delegated struct {
	db *sql.DB
}

// NewDelegated wraps a pool that is already open.
func NewDelegated(db *sql.DB) *Delegated {
	return &Delegated{db: db}
}

// OpenDelegated opens and pings the shared pool.
func OpenDelegated(ctx context.Context, driver, dsn string) (*Delegated, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: no DSN configured for driver %q", models.ErrConnection, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConnection, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrConnection, err)
	}

	return &Delegated{db: db}, nil
}

func (d *Delegated) Acquire(ctx context.Context) (*sql.DB, func() error, error) {
	if d.db == nil {
		return nil, nil, fmt.Errorf("%w: no session available", models.ErrConnection)
	}
	return d.db, noRelease, nil
}

func (d *Delegated) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// OpenFunc opens a database handle for a credential bundle.
type OpenFunc func(ctx context.Context, creds Credentials) (*sql.DB, error)

// Explicit opens a fresh connection per Acquire and closes it on release.
// Connections are never shared between calls.
type Explicit struct {
	creds Credentials
	open  OpenFunc
}

// NewExplicit builds a per-call connector. A nil open uses OpenSnowflake.
func NewExplicit(creds Credentials, open OpenFunc) *Explicit {
	if open == nil {
		open = OpenSnowflake
	}
	return &Explicit{creds: creds, open: open}
}

func (e *Explicit) Acquire(ctx context.Context) (*sql.DB, func() error, error) {
	if err := e.creds.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrConnection, err)
	}

	db, err := e.open(ctx, e.creds)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", models.ErrConnection, e.creds, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("%w: %s: %v", models.ErrConnection, e.creds, err)
	}

	return db, db.Close, nil
}

// Close is a no-op: every connection is closed by its own release.
func (e *Explicit) Close() error { return nil }

// OpenSnowflake opens a snowflake handle from the credential bundle.
func OpenSnowflake(ctx context.Context, creds Credentials) (*sql.DB, error) {
	cfg := &gosnowflake.Config{
		Account:   creds.Account,
		User:      creds.User,
		Password:  creds.Password,
		Warehouse: creds.Warehouse,
		Database:  creds.Database,
		Schema:    creds.Schema,
		Role:      creds.Role,
	}

	dsn, err := gosnowflake.DSN(cfg)
	if err != nil {
		return nil, err
	}

	return sql.Open("snowflake", dsn)
}
