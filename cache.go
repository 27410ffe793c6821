package mysqlkit

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// QueryCache memoizes query results for the lifetime of the process. Keys
// are exact statement text: two queries differing only in whitespace or bind
// values are distinct entries. There is no eviction and no TTL.
//
// A hit returns the identical *ResultSet stored on first success, without
// re-querying. Failed computations are never stored. The cache is safe for
// concurrent use and computes each key at most once.
type QueryCache struct {
	entries *xsync.MapOf[string, *ResultSet]
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewQueryCache returns an empty cache.
func NewQueryCache() *QueryCache {
	return &QueryCache{entries: xsync.NewMapOf[string, *ResultSet]()}
}

// GetOrCompute returns the cached result for query when present. Otherwise
// it invokes compute exactly once, stores the result on success, and returns
// it. The second return value reports whether this was a hit.
func (c *QueryCache) GetOrCompute(query string, compute func() (*ResultSet, error)) (*ResultSet, bool, error) {
	var computeErr error
	rs, loaded := c.entries.LoadOrTryCompute(query, func() (*ResultSet, bool) {
		v, err := compute()
		if err != nil {
			computeErr = err
			return nil, true // do not store failures
		}
		return v, false
	})
	if computeErr != nil {
		c.misses.Add(1)
		return nil, false, computeErr
	}
	if loaded {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return rs, loaded, nil
}

// Lookup returns the stored result for query without computing anything.
func (c *QueryCache) Lookup(query string) (*ResultSet, bool) {
	return c.entries.Load(query)
}

// Len returns the number of cached entries.
func (c *QueryCache) Len() int { return c.entries.Size() }

// Stats returns hit and miss counts since the cache was created.
func (c *QueryCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
