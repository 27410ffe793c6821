package mysqlkit

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// newMockPool registers a sqlmock instance under a DSN unique to the test
// and opens a Pool against it. Retry runs with zero delay so failure-path
// tests do not sleep.
func newMockPool(t *testing.T, retry RetryPolicy) (*Pool, sqlmock.Sqlmock) {
	t.Helper()
	dsn := "mock_" + strings.ReplaceAll(t.Name(), "/", "_")
	_, mock, err := sqlmock.NewWithDSN(dsn)
	if err != nil {
		t.Fatalf("sqlmock.NewWithDSN: %v", err)
	}
	cfg := Config{Driver: "sqlmock", DSN: dsn, Retry: retry}
	pool, err := NewPool(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })
	return pool, mock
}

func singleAttempt() RetryPolicy { return RetryPolicy{MaxAttempts: 1} }

func threeAttemptsNoDelay() RetryPolicy { return RetryPolicy{MaxAttempts: 3, Delay: 0} }
