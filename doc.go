// Package mysqlkit is a small MySQL access toolkit built around a resilient
// query executor: scoped connection acquisition, transactional execution,
// bounded retry with failure classification, and process-wide memoization of
// query results.
//
// # Quick Start
//
//	import "github.com/prodevkit/mysqlkit"
//
//	cfg := mysqlkit.Config{
//		Host:     "localhost",
//		Port:     3306,
//		Username: "root",
//		Password: "secret",
//		Database: "prodev",
//	}
//
//	ctx := context.Background()
//	pool, err := mysqlkit.NewPool(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	exec := pool.Executor()
//	rs, err := exec.FetchCached(ctx, mysqlkit.NewQuery("SELECT * FROM user_data"))
//
// # Execution pipeline
//
// An Executor call runs through a fixed, explicit pipeline:
//
//	cache lookup -> connection scope -> retry policy -> (transaction) -> statement
//
// A cache hit short-circuits everything after the lookup. A cache miss opens a
// fresh connection for the duration of the call, retries the statement on
// classified-transient failures only, and stores the rows on success. Failures
// are never cached and always propagate with their original message.
//
// # Transactions
//
//	err = pool.WithinTx(ctx, func(tx *mysqlkit.Tx) error {
//		_, err := tx.Exec(ctx, "UPDATE user_data SET email = ? WHERE user_id = ?", email, id)
//		return err
//	})
//
// WithinTx commits when the function returns nil and rolls back otherwise.
// The begin/work/commit unit is re-attempted under the pool's retry policy
// when the failure is classified retryable.
//
// # Streaming and pagination
//
// StreamRows holds one connection and hands rows to a callback one at a time.
// Paginate returns a Paginator that fetches LIMIT/OFFSET pages until an empty
// page signals end-of-data; it is restartable from offset zero via Reset.
//
// # Configuration
//
// Connection settings come from Config fields or environment variables with
// the prefix MYSQLKIT_* (e.g. MYSQLKIT_HOST, MYSQLKIT_DSN). The Driver field
// may name any registered database/sql driver, which is how the test suite
// substitutes sqlmock for a live server.
package mysqlkit

// Version returns the current library version.
func Version() string { return "v0.1.0" }
