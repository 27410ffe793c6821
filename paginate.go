package mysqlkit

import (
	"context"
	"database/sql"
)

// Paginator walks a query in fixed-size LIMIT/OFFSET pages. Each page is
// fetched on its own short-lived session. An empty page signals end-of-data;
// Reset rewinds to offset zero so the walk can start over.
type Paginator struct {
	pool     *Pool
	query    string
	args     []any
	pageSize int
	offset   int
	done     bool
}

// Paginate prepares a paginator over query with the given page size.
func (p *Pool) Paginate(query string, pageSize int, args ...any) *Paginator {
	return &Paginator{pool: p, query: query, args: args, pageSize: pageSize}
}

// Next fetches the next page. It returns nil once a previous call observed
// an empty page.
func (pg *Paginator) Next(ctx context.Context) (*ResultSet, error) {
	if pg.done {
		return nil, nil
	}
	var page *ResultSet
	err := pg.pool.WithConn(ctx, func(c *Conn) error {
		var err error
		page, err = c.FetchPage(ctx, pg.query, pg.pageSize, pg.offset, pg.args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	if page.Empty() {
		pg.done = true
		return nil, nil
	}
	pg.offset += pg.pageSize
	return page, nil
}

// Reset rewinds the paginator to offset zero.
func (pg *Paginator) Reset() {
	pg.offset = 0
	pg.done = false
}

// All drains every remaining page into one ResultSet, preserving row order.
func (pg *Paginator) All(ctx context.Context) (*ResultSet, error) {
	var out *ResultSet
	for {
		page, err := pg.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		if out == nil {
			out = &ResultSet{Columns: page.Columns}
		}
		out.Rows = append(out.Rows, page.Rows...)
	}
	if out == nil {
		out = &ResultSet{}
	}
	return out, nil
}

// StreamRows holds a single session for the whole iteration and hands rows
// to fn one at a time. The session is released when the cursor is exhausted
// or fn returns an error; the stream is not restartable.
func (p *Pool) StreamRows(ctx context.Context, query string, fn func(Row) error, args ...any) error {
	if p == nil || p.db == nil {
		return sql.ErrConnDone
	}
	return p.WithConn(ctx, func(c *Conn) error {
		return c.StreamRows(ctx, query, fn, args...)
	})
}

// StreamBatches feeds fn slices of at most batchSize rows, fetched lazily
// with LIMIT/OFFSET on a single session. Iteration ends at the first empty
// batch or the first fn error.
func (p *Pool) StreamBatches(ctx context.Context, query string, batchSize int, fn func([]Row) error, args ...any) error {
	if p == nil || p.db == nil {
		return sql.ErrConnDone
	}
	return p.WithConn(ctx, func(c *Conn) error {
		offset := 0
		for {
			page, err := c.FetchPage(ctx, query, batchSize, offset, args...)
			if err != nil {
				return err
			}
			if page.Empty() {
				return nil
			}
			if err := fn(page.Rows); err != nil {
				return err
			}
			offset += batchSize
		}
	})
}
