package mysqlkit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startMySQL launches a disposable MySQL container and returns a pool bound
// to it. Skipped in -short mode.
func startMySQL(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Docker test in short mode")
	}
	ctx := context.Background()

	container, err := tcmysql.Run(ctx,
		"mysql:8.0",
		tcmysql.WithDatabase("prodev"),
		tcmysql.WithUsername("testuser"),
		tcmysql.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithOccurrence(1).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	portInt, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	pool, err := NewPool(ctx, Config{
		Host:     host,
		Port:     portInt,
		Username: "testuser",
		Password: "testpass",
		Database: "prodev",
		Params:   map[string]string{"parseTime": "true"},
		Retry:    RetryPolicy{MaxAttempts: 3, Delay: 100 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func seedCSV(n int) string {
	var b strings.Builder
	b.WriteString("name,email,age\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "User %02d,user%02d@example.com,%d\n", i, i, 20+i)
	}
	return b.String()
}

func TestIntegration_SeedPaginateAndQuery(t *testing.T) {
	pool := startMySQL(t)
	ctx := context.Background()
	seeder := NewSeeder(pool)

	if err := seeder.EnsureUserTable(ctx); err != nil {
		t.Fatalf("EnsureUserTable: %v", err)
	}
	report, err := seeder.LoadCSV(ctx, strings.NewReader(seedCSV(20)))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if report.Inserted != 20 || report.Skipped != 0 {
		t.Fatalf("report=%+v want 20/0", report)
	}
	n, err := seeder.CountRows(ctx)
	if err != nil || n != 20 {
		t.Fatalf("CountRows=%d err=%v", n, err)
	}

	// Pagination covers every row exactly once in order.
	rs, err := pool.Paginate("SELECT user_id, name FROM user_data ORDER BY name", 7).All(ctx)
	if err != nil {
		t.Fatalf("Paginate.All: %v", err)
	}
	if rs.Len() != 20 {
		t.Fatalf("paginated rows=%d want 20", rs.Len())
	}

	// Streaming visits the same rows one at a time.
	streamed := 0
	err = pool.StreamRows(ctx, "SELECT name, age FROM user_data", func(Row) error {
		streamed++
		return nil
	})
	if err != nil || streamed != 20 {
		t.Fatalf("streamed=%d err=%v", streamed, err)
	}

	// Concurrent read pair matches sequential counts.
	results, err := pool.FetchConcurrently(ctx,
		NewQuery("SELECT * FROM user_data ORDER BY name"),
		NewQuery("SELECT * FROM user_data WHERE age > ? ORDER BY age DESC", 30),
	)
	if err != nil {
		t.Fatalf("FetchConcurrently: %v", err)
	}
	if results[0].Len() != 20 {
		t.Fatalf("all users=%d want 20", results[0].Len())
	}
	if results[1].Len() != 9 {
		t.Fatalf("older users=%d want 9", results[1].Len())
	}
}

func TestIntegration_TransactionRollbackVisibility(t *testing.T) {
	pool := startMySQL(t)
	ctx := context.Background()
	seeder := NewSeeder(pool)

	if err := seeder.EnsureUserTable(ctx); err != nil {
		t.Fatalf("EnsureUserTable: %v", err)
	}
	if _, err := seeder.LoadCSV(ctx, strings.NewReader(seedCSV(5))); err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	// A committed change is visible to a subsequent read.
	err := pool.WithinTx(ctx, func(tx *Tx) error {
		_, err := tx.Exec(ctx, "UPDATE user_data SET age = 99 WHERE email = ?", "user00@example.com")
		return err
	})
	if err != nil {
		t.Fatalf("commit tx: %v", err)
	}
	rs, err := pool.Executor().Fetch(ctx, NewQuery("SELECT age FROM user_data WHERE email = ?", "user00@example.com"))
	if err != nil || rs.Len() != 1 {
		t.Fatalf("read back: rs=%v err=%v", rs, err)
	}

	// A failed transaction leaves no visible state change.
	failErr := fmt.Errorf("abort on purpose")
	err = pool.WithinTx(ctx, func(tx *Tx) error {
		if _, err := tx.Exec(ctx, "UPDATE user_data SET age = 1"); err != nil {
			return err
		}
		return failErr
	})
	if err != failErr {
		t.Fatalf("want rollback error, got %v", err)
	}
	count := 0
	err = pool.StreamRows(ctx, "SELECT age FROM user_data WHERE age = 1", func(Row) error {
		count++
		return nil
	})
	if err != nil || count != 0 {
		t.Fatalf("rolled back change visible: count=%d err=%v", count, err)
	}
}

func TestIntegration_CacheMissThenHit(t *testing.T) {
	pool := startMySQL(t)
	ctx := context.Background()
	seeder := NewSeeder(pool)

	if err := seeder.EnsureUserTable(ctx); err != nil {
		t.Fatalf("EnsureUserTable: %v", err)
	}
	if _, err := seeder.LoadCSV(ctx, strings.NewReader(seedCSV(10))); err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}

	exec := pool.Executor()
	q := NewQuery("SELECT * FROM user_data ORDER BY name")
	first, err := exec.FetchCached(ctx, q)
	if err != nil {
		t.Fatalf("first FetchCached: %v", err)
	}
	second, err := exec.FetchCached(ctx, q)
	if err != nil {
		t.Fatalf("second FetchCached: %v", err)
	}
	if first != second {
		t.Fatal("cache hit must return the stored result set")
	}
	hits, misses := exec.Cache().Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("hits=%d misses=%d", hits, misses)
	}
}
