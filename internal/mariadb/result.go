package mariadb

import (
	"database/sql"
	"fmt"
)

// Row maps column names to values. Byte slices are returned as strings.
type Row map[string]any

// Result is the outcome of one statement. Columns keep driver order; a
// statement without a result set yields an empty Result.
type Result struct {
	Columns []string
	Rows    []Row
}

// Empty reports whether the result has no rows
func (r *Result) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Len returns the number of rows
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Values returns row i in column order
func (r *Result) Values(i int) []any {
	out := make([]any, len(r.Columns))
	for j, col := range r.Columns {
		out[j] = r.Rows[i][col]
	}
	return out
}

// rowScanner reads rows of a fixed column set into Row maps
type rowScanner struct {
	columns []string
	values  []any
	ptrs    []any
}

func newRowScanner(rows *sql.Rows) (*rowScanner, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	s := &rowScanner{
		columns: columns,
		values:  make([]any, len(columns)),
		ptrs:    make([]any, len(columns)),
	}
	for i := range s.values {
		s.ptrs[i] = &s.values[i]
	}
	return s, nil
}

func (s *rowScanner) scan(rows *sql.Rows) (Row, error) {
	if err := rows.Scan(s.ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	row := make(Row, len(s.columns))
	for i, col := range s.columns {
		row[col] = normalize(s.values[i])
	}
	return row, nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func scanAll(rows *sql.Rows) (*Result, error) {
	s, err := newRowScanner(rows)
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: s.columns, Rows: []Row{}}
	if len(s.columns) == 0 {
		return res, nil
	}
	for rows.Next() {
		row, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
