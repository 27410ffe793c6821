package mysqlkit

import (
	"context"
	"database/sql"
)

// Executor runs queries through a fixed pipeline of stages:
//
//	cache lookup -> connection scope -> retry policy -> (transaction) -> statement
//
// Each stage is explicit in the method bodies below rather than implied by
// wrapper stacking, so the composition order is visible at the call site.
type Executor struct {
	pool  *Pool
	cache *QueryCache
	retry RetryPolicy
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithCache replaces the executor's result cache, e.g. to share one cache
// between executors.
func WithCache(cache *QueryCache) ExecutorOption {
	return func(e *Executor) { e.cache = cache }
}

// WithRetry overrides the pool's retry policy for this executor.
func WithRetry(pol RetryPolicy) ExecutorOption {
	return func(e *Executor) { e.retry = pol }
}

// Executor returns a query executor bound to this pool. By default it owns a
// fresh result cache and inherits the pool's retry policy.
func (p *Pool) Executor(opts ...ExecutorOption) *Executor {
	e := &Executor{pool: p, cache: NewQueryCache(), retry: p.retry}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cache returns the executor's result cache.
func (e *Executor) Cache() *QueryCache { return e.cache }

// Fetch runs a read query: one fresh session for the duration of the call,
// the statement re-attempted under the retry policy for classified-transient
// failures. The result is not cached.
func (e *Executor) Fetch(ctx context.Context, q Query) (*ResultSet, error) {
	var rs *ResultSet
	err := e.pool.WithConn(ctx, func(c *Conn) error {
		return retryWithPolicy(ctx, e.retry, func() error {
			var err error
			rs, err = c.Query(ctx, q.SQL(), q.Args()...)
			return err
		}, Classify)
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// FetchCached is Fetch with memoization keyed by the exact statement text.
// The lookup happens before any connection is opened, so a hit costs no
// round trip. Bind arguments are deliberately not part of the key: callers
// caching parameterized queries should interpolate distinguishing values
// into the text. A failure that survives all retries propagates to the
// caller and is never cached.
func (e *Executor) FetchCached(ctx context.Context, q Query) (*ResultSet, error) {
	rs, hit, err := e.cache.GetOrCompute(q.SQL(), func() (*ResultSet, error) {
		return e.Fetch(ctx, q)
	})
	e.pool.logCache(ctx, q.SQL(), hit)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Mutate runs a write statement inside a transaction on a fresh session:
// commit on success, rollback on failure, the whole transactional unit
// re-attempted under the retry policy when the failure is retryable.
func (e *Executor) Mutate(ctx context.Context, q Query) (sql.Result, error) {
	var res sql.Result
	err := e.pool.WithConn(ctx, func(c *Conn) error {
		return retryWithPolicy(ctx, e.retry, func() error {
			return c.WithinTx(ctx, func(tx *Tx) error {
				var err error
				res, err = tx.Exec(ctx, q.SQL(), q.Args()...)
				return err
			})
		}, Classify)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
