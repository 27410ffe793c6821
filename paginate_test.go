package mysqlkit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const pageQuery = "SELECT user_id, name FROM user_data ORDER BY user_id"

func pageRows(from, to int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"user_id", "name"})
	for i := from; i <= to; i++ {
		rows.AddRow(fmt.Sprintf("u%02d", i), fmt.Sprintf("user-%02d", i))
	}
	return rows
}

func expectPage(mock sqlmock.Sqlmock, pageSize, offset int, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(pageQuery+" LIMIT ? OFFSET ?")).
		WithArgs(pageSize, offset).
		WillReturnRows(rows)
}

func TestPaginator_WalksAllPagesInOrder(t *testing.T) {
	pool, mock := newMockPool(t, singleAttempt())
	expectPage(mock, 5, 0, pageRows(1, 5))
	expectPage(mock, 5, 5, pageRows(6, 10))
	expectPage(mock, 5, 10, pageRows(11, 13))
	expectPage(mock, 5, 15, pageRows(1, 0)) // empty page ends the walk

	pg := pool.Paginate(pageQuery, 5)
	var all []Row
	pages := 0
	for {
		page, err := pg.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if page == nil {
			break
		}
		pages++
		all = append(all, page.Rows...)
	}
	if pages != 3 {
		t.Fatalf("pages=%d want 3", pages)
	}
	if len(all) != 13 {
		t.Fatalf("rows=%d want 13", len(all))
	}
	seen := make(map[any]bool, len(all))
	for i, row := range all {
		id := row["user_id"]
		if seen[id] {
			t.Fatalf("duplicate row %v", id)
		}
		seen[id] = true
		want := fmt.Sprintf("u%02d", i+1)
		if id != want {
			t.Fatalf("row %d out of order: got %v want %v", i, id, want)
		}
	}
	// Exhausted paginators keep returning nil without touching the database.
	page, err := pg.Next(context.Background())
	if err != nil || page != nil {
		t.Fatalf("after exhaustion: page=%v err=%v", page, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPaginator_ResetRestartsFromZero(t *testing.T) {
	pool, mock := newMockPool(t, singleAttempt())
	expectPage(mock, 3, 0, pageRows(1, 3))
	expectPage(mock, 3, 3, pageRows(1, 0))
	expectPage(mock, 3, 0, pageRows(1, 3))

	pg := pool.Paginate(pageQuery, 3)
	for {
		page, err := pg.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if page == nil {
			break
		}
	}

	pg.Reset()
	page, err := pg.Next(context.Background())
	if err != nil {
		t.Fatalf("Next after Reset: %v", err)
	}
	if page.Len() != 3 {
		t.Fatalf("rows=%d want 3 after Reset", page.Len())
	}
}

func TestPaginator_All(t *testing.T) {
	pool, mock := newMockPool(t, singleAttempt())
	expectPage(mock, 4, 0, pageRows(1, 4))
	expectPage(mock, 4, 4, pageRows(5, 7))
	expectPage(mock, 4, 8, pageRows(1, 0))

	rs, err := pool.Paginate(pageQuery, 4).All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if rs.Len() != 7 {
		t.Fatalf("rows=%d want 7", rs.Len())
	}
}

func TestStreamRows_OrderAndRelease(t *testing.T) {
	pool, mock := newMockPool(t, singleAttempt())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM user_data")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("Alice").AddRow("Bob").AddRow("Carol"))

	var names []string
	err := pool.StreamRows(context.Background(), "SELECT name FROM user_data", func(r Row) error {
		names = append(names, r["name"].(string))
		return nil
	})
	if err != nil {
		t.Fatalf("StreamRows: %v", err)
	}
	if len(names) != 3 || names[0] != "Alice" || names[2] != "Carol" {
		t.Fatalf("names=%v", names)
	}
	if got := pool.Stats().BorrowedNow; got != 0 {
		t.Fatalf("stream left connection borrowed: %d", got)
	}
}

func TestStreamRows_CallbackErrorStopsIteration(t *testing.T) {
	pool, mock := newMockPool(t, singleAttempt())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM user_data")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("Alice").AddRow("Bob"))

	stop := errors.New("enough")
	calls := 0
	err := pool.StreamRows(context.Background(), "SELECT name FROM user_data", func(Row) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("want callback error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
	if got := pool.Stats().BorrowedNow; got != 0 {
		t.Fatalf("connection leaked after callback error: %d", got)
	}
}

func TestStreamBatches(t *testing.T) {
	pool, mock := newMockPool(t, singleAttempt())
	expectPage(mock, 5, 0, pageRows(1, 5))
	expectPage(mock, 5, 5, pageRows(6, 8))
	expectPage(mock, 5, 10, pageRows(1, 0))

	var sizes []int
	err := pool.StreamBatches(context.Background(), pageQuery, 5, func(batch []Row) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	if err != nil {
		t.Fatalf("StreamBatches: %v", err)
	}
	if len(sizes) != 2 || sizes[0] != 5 || sizes[1] != 3 {
		t.Fatalf("sizes=%v", sizes)
	}
}

func TestFetchPage_Validation(t *testing.T) {
	pool, _ := newMockPool(t, singleAttempt())
	_ = pool.WithConn(context.Background(), func(c *Conn) error {
		if _, err := c.FetchPage(context.Background(), pageQuery, 0, 0); err == nil {
			t.Fatal("zero page size should error")
		}
		if _, err := c.FetchPage(context.Background(), pageQuery, 5, -1); err == nil {
			t.Fatal("negative offset should error")
		}
		return nil
	})
}
