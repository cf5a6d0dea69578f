package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/msto63/englishquery/internal/mariadb"
	"github.com/msto63/englishquery/internal/orchestrator"
	"github.com/msto63/englishquery/pkg/core/logging"
)

type stubTranslator struct{ reply string }

func (s stubTranslator) Translate(context.Context, string) (string, error) { return s.reply, nil }
func (s stubTranslator) Name() string                                      { return "stub" }

func newMockShell(t *testing.T) (*shell, sqlmock.Sqlmock, *bytes.Buffer) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	conn := mariadb.New(mariadb.DefaultConnectionConfig(),
		mariadb.WithOpener(func(mariadb.ConnectionConfig) (*sql.DB, error) { return db, nil }),
		mariadb.WithLogger(logging.NewNop()))
	if err := conn.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	var out bytes.Buffer
	return &shell{conn: conn, out: &out}, mock, &out
}

func TestPrintResult(t *testing.T) {
	tests := []struct {
		name  string
		rows  int
		want  []string
		avoid []string
	}{
		{"empty", 0, []string{"   → No rows returned"}, []string{"more rows"}},
		{"short", 3, []string{"   → row2 | 2", "3 rows"}, []string{"more rows"}},
		{"long", 8, []string{"   → row4 | 4", "   ... and 3 more rows", "8 rows"}, []string{"row5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &mariadb.Result{Columns: []string{"name", "n"}}
			for i := range tt.rows {
				res.Rows = append(res.Rows, mariadb.Row{"name": "row" + string(rune('0'+i)), "n": i})
			}
			var buf bytes.Buffer
			printResult(&buf, res, 12*time.Millisecond)
			got := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, a := range tt.avoid {
				if strings.Contains(got, a) {
					t.Errorf("output contains %q:\n%s", a, got)
				}
			}
		})
	}
}

func TestShell_Handle(t *testing.T) {
	sh, mock, out := newMockShell(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM city")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Kabul"))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM city WHERE id = 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	for _, line := range []string{"", "SELECT name FROM city", "DELETE FROM city WHERE id = 1", "/nope x"} {
		if !sh.handle(context.Background(), line) {
			t.Fatalf("handle(%q) = false, want true", line)
		}
	}
	if sh.handle(context.Background(), "/bye") {
		t.Error("handle(/bye) = true, want false")
	}

	got := out.String()
	for _, want := range []string{"   → Kabul", "   → 1 rows affected", "Unknown command /nope", "Bye"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestShell_AskAI(t *testing.T) {
	sh, mock, out := newMockShell(t)

	sh.handle(context.Background(), "/askai how many cities")
	if !strings.Contains(out.String(), "not available") {
		t.Errorf("output = %q, want unavailable notice", out.String())
	}

	out.Reset()
	sh.session = orchestrator.New(stubTranslator{reply: "```sql\nSELECT COUNT(*) AS n FROM city;\n```"}, sh.conn,
		orchestrator.WithLogger(logging.NewNop()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS n FROM city;")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4079))

	sh.handle(context.Background(), "/askai how many cities")
	got := out.String()
	for _, want := range []string{"SQL: SELECT COUNT(*) AS n FROM city;", "   → 4079"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestShell_Stream(t *testing.T) {
	sh, mock, out := newMockShell(t)
	sh.chunkSize = 2

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM city")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Kabul").AddRow("Qandahar").AddRow("Herat"))

	sh.handle(context.Background(), "/stream SELECT name FROM city")
	got := out.String()
	for _, want := range []string{"   → Kabul", "   → Herat", "3 rows streamed"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	// The session lock is released after the stream.
	if !sh.conn.Connected() {
		t.Error("Connected() = false after stream")
	}
}

func TestIsModification(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM city", false},
		{"CALL top_cities(5)", false},
		{"SET @n = 1", false},
		{"-- newest first\nSELECT * FROM city ORDER BY id DESC", false},
		{"/* cleanup */ DELETE FROM city WHERE id = 1", true},
		{"# seed\ninsert into city (name) values ('x')", true},
		{"UPDATE city SET name = 'y'", true},
		{"CREATE TABLE t (id INT)", true},
		{"-- only a comment", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isModification(tt.query); got != tt.want {
			t.Errorf("isModification(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestShell_ProcedureResultIsPrinted(t *testing.T) {
	sh, mock, out := newMockShell(t)

	mock.ExpectQuery(regexp.QuoteMeta("CALL top_cities(1)")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Mumbai"))

	sh.handle(context.Background(), "CALL top_cities(1)")
	if got := out.String(); !strings.Contains(got, "   → Mumbai") {
		t.Errorf("output = %q, want the procedure's rows", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
