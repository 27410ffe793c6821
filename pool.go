package mysqlkit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
)

// Pool owns the underlying *sql.DB and the behavior configuration shared by
// every call made through it. Connections are handed out one at a time via
// Acquire/WithConn so each logical call gets a session of its own.
type Pool struct {
	db     *sqlx.DB
	driver string
	retry  RetryPolicy

	logger             *slog.Logger
	loggingEnabled     bool
	slowQueryThreshold time.Duration
	telemetryEnabled   bool

	borrowedNow  atomic.Int64
	totalBorrows atomic.Uint64
}

// NewPool opens a database handle for cfg and verifies it with a ping.
// MYSQLKIT_* environment variables overlay cfg first, so a deployment can
// supply credentials without code changes.
func NewPool(ctx context.Context, cfg Config) (*Pool, error) {
	applyEnv(&cfg)

	driverName := cfg.Driver
	if driverName == "" {
		driverName = "mysql"
	}
	dsn, err := dsnFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("mysqlkit: open %s: %w", driverName, err)
	}
	if cfg.Pool.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.Pool.MaxOpen)
	}
	if cfg.Pool.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdle)
	}
	if cfg.Pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)
	}
	if cfg.Pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 && retry.Delay == 0 {
		retry = DefaultRetryPolicy()
	}

	return &Pool{
		db:                 sqlx.NewDb(db, driverName),
		driver:             driverName,
		retry:              retry,
		logger:             defaultLogger,
		slowQueryThreshold: cfg.SlowQueryThreshold,
		telemetryEnabled:   cfg.Telemetry.Enabled,
	}, nil
}

// NewPoolEnv builds a pool purely from MYSQLKIT_* environment variables.
func NewPoolEnv(ctx context.Context) (*Pool, error) {
	return NewPool(ctx, Config{})
}

// Close releases the underlying database handle.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Ping verifies the server is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	if p == nil || p.db == nil {
		return sql.ErrConnDone
	}
	return p.db.PingContext(ctx)
}

// selfCheckTimeout bounds the probe query in SelfCheck.
const selfCheckTimeout = 3 * time.Second

// SelfCheck pings the server and runs a trivial probe query, reporting the
// first failure it hits.
func (p *Pool) SelfCheck(ctx context.Context) error {
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("mysqlkit: self check ping: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, selfCheckTimeout)
	defer cancel()
	return p.WithConn(ctx, func(c *Conn) error {
		rs, err := c.Query(ctx, "SELECT 1")
		if err != nil {
			return fmt.Errorf("mysqlkit: self check query: %w", err)
		}
		if rs.Empty() {
			return fmt.Errorf("mysqlkit: self check query returned no rows")
		}
		return nil
	})
}

// RetryPolicy returns the pool's effective retry policy.
func (p *Pool) RetryPolicy() RetryPolicy { return p.retry }

// PoolStats is a snapshot of connection usage.
type PoolStats struct {
	ActiveConnections int
	IdleConnections   int
	TotalConnections  int
	MaxOpen           int
	BorrowedNow       int64
	TotalBorrows      uint64
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	if p == nil || p.db == nil {
		return PoolStats{}
	}
	s := p.db.Stats()
	return PoolStats{
		ActiveConnections: s.InUse,
		IdleConnections:   s.Idle,
		TotalConnections:  s.OpenConnections,
		MaxOpen:           s.MaxOpenConnections,
		BorrowedNow:       p.borrowedNow.Load(),
		TotalBorrows:      p.totalBorrows.Load(),
	}
}

func (p *Pool) onBorrow() {
	p.borrowedNow.Add(1)
	p.totalBorrows.Add(1)
}

func (p *Pool) onReturn() {
	p.borrowedNow.Add(-1)
}
