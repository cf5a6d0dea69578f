package mariadb

import (
	"context"
	"fmt"
	"strings"
)

// ColumnInfo describes one column of a table
type ColumnInfo struct {
	Name string
	Type string
}

// TableSchema describes one table of the current database
type TableSchema struct {
	Name    string
	Columns []ColumnInfo
}

const describeSchemaQuery = `SELECT TABLE_NAME, COLUMN_NAME, COLUMN_TYPE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = DATABASE()
ORDER BY TABLE_NAME, ORDINAL_POSITION`

// DescribeSchema lists the tables and columns of the connected database
func (c *Connection) DescribeSchema(ctx context.Context) ([]TableSchema, error) {
	res, err := c.Execute(ctx, describeSchemaQuery)
	if err != nil {
		return nil, fmt.Errorf("describe schema: %w", err)
	}

	var tables []TableSchema
	for _, row := range res.Rows {
		table := fmt.Sprint(row["TABLE_NAME"])
		col := ColumnInfo{
			Name: fmt.Sprint(row["COLUMN_NAME"]),
			Type: fmt.Sprint(row["COLUMN_TYPE"]),
		}
		if n := len(tables); n > 0 && tables[n-1].Name == table {
			tables[n-1].Columns = append(tables[n-1].Columns, col)
			continue
		}
		tables = append(tables, TableSchema{Name: table, Columns: []ColumnInfo{col}})
	}
	return tables, nil
}

// FormatSchema renders tables as a compact prompt prefix, one line per table
func FormatSchema(tables []TableSchema) string {
	if len(tables) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("# MariaDB tables\n")
	for _, t := range tables {
		cols := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c.Name + " " + c.Type
		}
		fmt.Fprintf(&b, "# Table %s, columns = [%s]\n", t.Name, strings.Join(cols, ", "))
	}
	return b.String()
}
