package mariadb

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestDescribeSchema(t *testing.T) {
	c, mock := connectedMock(t, testConfig())

	mock.ExpectQuery(`INFORMATION_SCHEMA\.COLUMNS`).
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "COLUMN_TYPE"}).
			AddRow("city", "id", "int(11)").
			AddRow("city", "name", "char(35)").
			AddRow("country", "name", "char(52)").
			AddRow("country", "population", "int(11)"))

	tables, err := c.DescribeSchema(context.Background())
	if err != nil {
		t.Fatalf("DescribeSchema() error = %v", err)
	}

	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}
	if tables[0].Name != "city" || len(tables[0].Columns) != 2 {
		t.Errorf("tables[0] = %+v", tables[0])
	}
	if tables[1].Columns[1].Name != "population" || tables[1].Columns[1].Type != "int(11)" {
		t.Errorf("tables[1].Columns[1] = %+v", tables[1].Columns[1])
	}
	assertSQLMock(t, mock)
}

func TestFormatSchema(t *testing.T) {
	if got := FormatSchema(nil); got != "" {
		t.Errorf("FormatSchema(nil) = %q, want empty", got)
	}

	got := FormatSchema([]TableSchema{{
		Name:    "country",
		Columns: []ColumnInfo{{Name: "name", Type: "char(52)"}, {Name: "population", Type: "int(11)"}},
	}})

	want := "# Table country, columns = [name char(52), population int(11)]"
	if !strings.Contains(got, want) {
		t.Errorf("FormatSchema() = %q, want line %q", got, want)
	}
}
