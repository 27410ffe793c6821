package mysqlkit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// UserTable is the table the seeder manages.
const UserTable = "user_data"

const createUserTableSQL = `CREATE TABLE IF NOT EXISTS user_data (
	user_id CHAR(36) PRIMARY KEY,
	name    VARCHAR(255) NOT NULL,
	email   VARCHAR(255) NOT NULL UNIQUE,
	age     INT NULL
)`

// Seeder bootstraps the toy schema and bulk-loads it from delimited text.
type Seeder struct {
	pool *Pool
}

// NewSeeder returns a seeder bound to pool.
func NewSeeder(pool *Pool) *Seeder {
	return &Seeder{pool: pool}
}

// EnsureDatabase creates the named database when it does not exist. The pool
// must be connected without a default schema (or with sufficient rights).
func (s *Seeder) EnsureDatabase(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("mysqlkit: database name is empty")
	}
	return s.pool.WithConn(ctx, func(c *Conn) error {
		_, err := c.Exec(ctx, "CREATE DATABASE IF NOT EXISTS `"+name+"`")
		return err
	})
}

// EnsureUserTable creates the user_data table when it does not exist.
func (s *Seeder) EnsureUserTable(ctx context.Context) error {
	return s.pool.WithConn(ctx, func(c *Conn) error {
		_, err := c.Exec(ctx, createUserTableSQL)
		return err
	})
}

// SeedReport summarizes one LoadCSV run.
type SeedReport struct {
	Inserted int
	Skipped  int
}

// LoadCSV reads rows with header name,email,age from r and inserts each with
// a generated UUID. A row that fails to parse or insert is skipped and
// counted, never aborting the batch. Inserts run on one session so partial
// progress is visible to the caller through the report.
func (s *Seeder) LoadCSV(ctx context.Context, r io.Reader) (SeedReport, error) {
	var report SeedReport

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return report, fmt.Errorf("mysqlkit: read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.ToLower(col))] = i
	}
	for _, required := range []string{"name", "email", "age"} {
		if _, ok := idx[required]; !ok {
			return report, fmt.Errorf("mysqlkit: csv header missing %q column", required)
		}
	}

	err = s.pool.WithConn(ctx, func(c *Conn) error {
		for {
			record, err := reader.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				report.Skipped++
				continue
			}
			name := strings.TrimSpace(record[idx["name"]])
			email := strings.TrimSpace(record[idx["email"]])
			age, ageErr := parseAge(record[idx["age"]])
			if name == "" || email == "" || ageErr != nil {
				report.Skipped++
				continue
			}
			_, err = c.Exec(ctx,
				"INSERT INTO user_data (user_id, name, email, age) VALUES (?, ?, ?, ?)",
				uuid.NewString(), name, email, age,
			)
			if err != nil {
				// Duplicate emails and the like skip the row, not the batch.
				report.Skipped++
				continue
			}
			report.Inserted++
		}
	})
	return report, err
}

// CountRows returns the number of rows in user_data.
func (s *Seeder) CountRows(ctx context.Context) (int, error) {
	var count int
	err := s.pool.WithConn(ctx, func(c *Conn) error {
		rs, err := c.Query(ctx, "SELECT COUNT(*) AS n FROM user_data")
		if err != nil {
			return err
		}
		if rs.Empty() {
			return fmt.Errorf("mysqlkit: count query returned no rows")
		}
		count, err = toInt(rs.Rows[0]["n"])
		return err
	})
	return count, err
}

// parseAge accepts integral and decimal age text, returning nil for blanks
// so the column stays NULL.
func parseAge(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return int(f), nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case string:
		return strconv.Atoi(n)
	case []byte:
		return strconv.Atoi(string(n))
	default:
		return 0, fmt.Errorf("mysqlkit: unexpected count type %T", v)
	}
}
