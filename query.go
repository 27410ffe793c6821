package mysqlkit

import (
	"github.com/jmoiron/sqlx"
)

// Query is an immutable SQL statement plus its ordered bind arguments.
type Query struct {
	sql  string
	args []any
}

// NewQuery builds a Query. The argument slice is copied so later mutation of
// the caller's slice cannot change the query.
func NewQuery(sql string, args ...any) Query {
	var cp []any
	if len(args) > 0 {
		cp = make([]any, len(args))
		copy(cp, args)
	}
	return Query{sql: sql, args: cp}
}

// SQL returns the statement text.
func (q Query) SQL() string { return q.sql }

// Args returns a copy of the bind arguments.
func (q Query) Args() []any {
	if len(q.args) == 0 {
		return nil
	}
	cp := make([]any, len(q.args))
	copy(cp, q.args)
	return cp
}

func (q Query) String() string { return q.sql }

// Row maps column names to scalar values. Values are strings, integers,
// floats, or nil; []byte column data is normalized to string.
type Row map[string]any

// ResultSet is the materialized outcome of one query execution: the column
// order as returned by the server plus every row. A ResultSet is produced
// once and never mutated, which lets the query cache hand the same instance
// to every subsequent caller.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Empty reports whether the result holds no rows.
func (rs *ResultSet) Empty() bool { return rs.Len() == 0 }

// scanResultSet drains rows into a ResultSet and closes them.
func scanResultSet(rows *sqlx.Rows) (*ResultSet, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{Columns: cols}
	for rows.Next() {
		m := make(map[string]any, len(cols))
		if err := rows.MapScan(m); err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, normalizeRow(m))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// normalizeRow converts driver []byte values to string in place.
func normalizeRow(m map[string]any) Row {
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			m[k] = string(b)
		}
	}
	return Row(m)
}
