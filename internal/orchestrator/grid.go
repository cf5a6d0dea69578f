package orchestrator

import (
	"fmt"
	"strings"

	"github.com/msto63/englishquery/internal/mariadb"
)

const (
	nameColumnWidth    = 200
	defaultColumnWidth = 120
)

// Column is one grid heading
type Column struct {
	Title string
	Width int // pixels; text renderers divide it down to cells
}

// Grid is a rendered result: one string cell per column per row
type Grid struct {
	Columns []Column
	Rows    [][]string
}

// Render converts a result into a grid. Columns follow the result's
// column order, missing keys render empty and NULL values as "NULL".
func Render(result *mariadb.Result) Grid {
	var g Grid
	if result == nil {
		return g
	}
	for _, name := range result.Columns {
		width := defaultColumnWidth
		if strings.EqualFold(name, "name") {
			width = nameColumnWidth
		}
		g.Columns = append(g.Columns, Column{Title: name, Width: width})
	}

	g.Rows = make([][]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for i, name := range result.Columns {
			cells[i] = Cell(row, name)
		}
		g.Rows = append(g.Rows, cells)
	}
	return g
}

// Cell formats one value of a row
func Cell(row mariadb.Row, column string) string {
	v, ok := row[column]
	switch {
	case !ok:
		return ""
	case v == nil:
		return "NULL"
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}
