package mysqlkit

import (
	"context"
	"database/sql"

	"golang.org/x/sync/errgroup"
)

// FetchConcurrently runs the given read-only queries as concurrent tasks,
// each on its own session, and waits for all of them. Results are returned
// in the order the queries were given; completion order between tasks is
// unspecified. The first failure cancels the remaining tasks and propagates.
func (p *Pool) FetchConcurrently(ctx context.Context, queries ...Query) ([]*ResultSet, error) {
	if p == nil || p.db == nil {
		return nil, sql.ErrConnDone
	}
	results := make([]*ResultSet, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			return p.WithConn(ctx, func(c *Conn) error {
				rs, err := c.Query(ctx, q.SQL(), q.Args()...)
				if err != nil {
					return err
				}
				results[i] = rs
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// QueryOutcome is one task's result in FetchAllSettled.
type QueryOutcome struct {
	Query  Query
	Result *ResultSet
	Err    error
}

// FetchAllSettled is FetchConcurrently with failures collected instead of
// propagated: every task runs to completion and reports its own outcome.
func (p *Pool) FetchAllSettled(ctx context.Context, queries ...Query) []QueryOutcome {
	outcomes := make([]QueryOutcome, len(queries))
	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			outcomes[i].Query = q
			outcomes[i].Err = p.WithConn(ctx, func(c *Conn) error {
				rs, err := c.Query(ctx, q.SQL(), q.Args()...)
				if err != nil {
					return err
				}
				outcomes[i].Result = rs
				return nil
			})
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}
