package mysqlkit

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

// Tx is a transaction scoped to one borrowed session.
type Tx struct {
	inner *sqlx.Tx
	p     *Pool
}

// Exec executes a statement within the transaction.
func (tx *Tx) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx == nil || tx.inner == nil {
		return nil, sql.ErrTxDone
	}
	start := time.Now()
	res, err := tx.inner.ExecContext(ctx, query, args...)
	tx.p.logQuery(ctx, "tx.exec", query, args, time.Since(start), err)
	return res, err
}

// Query runs a query within the transaction and materializes its rows.
func (tx *Tx) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	if tx == nil || tx.inner == nil {
		return nil, sql.ErrTxDone
	}
	start := time.Now()
	rows, err := tx.inner.QueryxContext(ctx, query, args...)
	if err != nil {
		tx.p.logQuery(ctx, "tx.query", query, args, time.Since(start), err)
		return nil, err
	}
	rs, err := scanResultSet(rows)
	tx.p.logQuery(ctx, "tx.query", query, args, time.Since(start), err)
	return rs, err
}

// WithinTx runs fn inside a transaction on this session: commit when fn
// returns nil, roll back and return fn's error unchanged otherwise. No
// retry happens at this level.
func (c *Conn) WithinTx(ctx context.Context, fn func(*Tx) error) error {
	if c == nil || c.inner == nil {
		return sql.ErrConnDone
	}
	start := time.Now()
	tx, err := c.inner.BeginTxx(ctx, nil)
	if err != nil {
		c.p.logTransaction(ctx, "begin", time.Since(start), err)
		return err
	}
	wrap := &Tx{inner: tx, p: c.p}
	if err := fn(wrap); err != nil {
		_ = tx.Rollback()
		c.p.logTransaction(ctx, "rollback", time.Since(start), err)
		return err
	}
	if err := tx.Commit(); err != nil {
		c.p.logTransaction(ctx, "commit", time.Since(start), err)
		return err
	}
	c.p.logTransaction(ctx, "commit", time.Since(start), nil)
	return nil
}

// WithinTx acquires a session and runs fn in a transaction on it. The whole
// begin/work/commit unit is re-attempted under the pool's retry policy when
// the failure classifies as retryable (deadlock, lock wait timeout, lost
// connection); any other failure rolls back and propagates immediately.
func (p *Pool) WithinTx(ctx context.Context, fn func(*Tx) error) error {
	if p == nil || p.db == nil {
		return sql.ErrConnDone
	}
	return p.WithConn(ctx, func(c *Conn) error {
		op := func() error { return c.WithinTx(ctx, fn) }
		return retryWithPolicy(ctx, p.retry, op, Classify)
	})
}
