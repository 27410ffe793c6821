package mysqlkit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
)

// Conn is one live database session borrowed from the pool. It is owned
// exclusively by the call that acquired it and must be released exactly once;
// Close is idempotent so deferred and explicit releases cannot double-free.
type Conn struct {
	inner  *sqlx.Conn
	p      *Pool
	closed atomic.Bool
}

// WithConn acquires a session, invokes fn with it, and releases it on every
// exit path, including a panic inside fn.
func (p *Pool) WithConn(ctx context.Context, fn func(*Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// Acquire borrows a session from the pool. The caller owns the returned Conn
// and must Close it.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p == nil || p.db == nil {
		return nil, sql.ErrConnDone
	}
	start := time.Now()
	c, err := p.db.Connx(ctx)
	p.logConnection(ctx, "acquire", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	p.onBorrow()
	return &Conn{inner: c, p: p}, nil
}

// Close returns the session to the pool. Subsequent calls are no-ops.
func (c *Conn) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.p.onReturn()
	err := c.inner.Close()
	c.p.logConnection(context.Background(), "release", 0, err)
	return err
}

// Query runs a statement and materializes every row.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	start := time.Now()
	rows, err := c.queryx(ctx, query, args...)
	if err != nil {
		c.p.logQuery(ctx, "query", query, args, time.Since(start), err)
		return nil, err
	}
	rs, err := scanResultSet(rows)
	c.p.logQuery(ctx, "query", query, args, time.Since(start), err)
	return rs, err
}

// Exec executes a statement and returns the driver result.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	start := time.Now()
	res, err := c.execContext(ctx, query, args...)
	c.p.logQuery(ctx, "exec", query, args, time.Since(start), err)
	return res, err
}

// FetchPage runs query with LIMIT/OFFSET appended and returns one page.
// An empty page signals end-of-data to the caller.
func (c *Conn) FetchPage(ctx context.Context, query string, pageSize, offset int, args ...any) (*ResultSet, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("mysqlkit: page size must be positive, got %d", pageSize)
	}
	if offset < 0 {
		return nil, fmt.Errorf("mysqlkit: offset must be non-negative, got %d", offset)
	}
	paged := query + " LIMIT ? OFFSET ?"
	pagedArgs := append(append([]any{}, args...), pageSize, offset)
	return c.Query(ctx, paged, pagedArgs...)
}

// StreamRows runs a query and hands rows to fn one at a time without
// materializing the full result. Iteration stops on the first fn error.
func (c *Conn) StreamRows(ctx context.Context, query string, fn func(Row) error, args ...any) error {
	if c == nil || c.inner == nil {
		return sql.ErrConnDone
	}
	start := time.Now()
	rows, err := c.queryx(ctx, query, args...)
	if err != nil {
		c.p.logQuery(ctx, "stream", query, args, time.Since(start), err)
		return err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		m := make(map[string]any, len(cols))
		if err := rows.MapScan(m); err != nil {
			return err
		}
		if err := fn(normalizeRow(m)); err != nil {
			return err
		}
	}
	err = rows.Err()
	c.p.logQuery(ctx, "stream", query, args, time.Since(start), err)
	return err
}

// BulkInsert inserts rows with one multi-values INSERT statement.
func (c *Conn) BulkInsert(ctx context.Context, table string, columns []string, rows [][]any) (sql.Result, error) {
	if c == nil || c.inner == nil {
		return nil, sql.ErrConnDone
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("mysqlkit: no rows to insert")
	}
	colN := len(columns)
	for i, r := range rows {
		if len(r) != colN {
			return nil, fmt.Errorf("mysqlkit: row %d has %d values, want %d", i, len(r), colN)
		}
	}
	placeOne := "(" + strings.TrimRight(strings.Repeat("?,", colN), ",") + ")"
	var b strings.Builder
	b.Grow(64 + len(rows)*len(placeOne))
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(columns, ","))
	b.WriteString(") VALUES ")
	args := make([]any, 0, len(rows)*colN)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(placeOne)
		args = append(args, r...)
	}
	return c.Exec(ctx, b.String(), args...)
}

func (c *Conn) queryx(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	if c.p != nil && c.p.telemetryEnabled {
		return c.p.instrumentedQuery(ctx, c.inner, query, args...)
	}
	return c.inner.QueryxContext(ctx, query, args...)
}

func (c *Conn) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if c.p != nil && c.p.telemetryEnabled {
		return c.p.instrumentedExec(ctx, c.inner, query, args...)
	}
	return c.inner.ExecContext(ctx, query, args...)
}
