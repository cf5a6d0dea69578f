package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"slices"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/msto63/englishquery/internal/mariadb"
	"github.com/msto63/englishquery/pkg/core/apperr"
	"github.com/msto63/englishquery/pkg/core/logging"
)

type fakeTranslator struct {
	reply  string
	err    error
	calls  []string
	schema string
}

func (f *fakeTranslator) Translate(_ context.Context, text string) (string, error) {
	f.calls = append(f.calls, text)
	return f.reply, f.err
}

func (f *fakeTranslator) Name() string { return "fake" }

func (f *fakeTranslator) SetSchema(schema string) { f.schema = schema }

type fakeExecutor struct {
	result  *mariadb.Result
	err     error
	queries []string
}

func (f *fakeExecutor) Execute(_ context.Context, query string) (*mariadb.Result, error) {
	f.queries = append(f.queries, query)
	return f.result, f.err
}

func newTestSession(tr *fakeTranslator, exec Executor, opts ...Option) *Session {
	return New(tr, exec, append([]Option{WithLogger(logging.NewNop())}, opts...)...)
}

func TestSubmit_ShowAllCountries(t *testing.T) {
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

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, population FROM country;")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "population"}).
			AddRow("Aruba", 103000).
			AddRow("Afghanistan", 22720000))

	tr := &fakeTranslator{reply: "```sql\nSELECT name, population FROM country;\n```"}
	s := newTestSession(tr, conn)

	sub, err := s.Submit(context.Background(), "show all countries")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.SQL != "SELECT name, population FROM country;" {
		t.Errorf("SQL = %q, want cleaned statement", sub.SQL)
	}
	if sub.Result.Len() != 2 {
		t.Errorf("rows = %d, want 2", sub.Result.Len())
	}
	if !sub.Rendered {
		t.Error("Rendered = false, want true")
	}

	grid, visible := s.Grid()
	if !visible {
		t.Error("grid not visible after submit")
	}
	var titles []string
	for _, c := range grid.Columns {
		titles = append(titles, c.Title)
	}
	if !slices.Equal(titles, []string{"name", "population"}) {
		t.Errorf("columns = %v, want [name population]", titles)
	}
	if len(grid.Rows) != 2 || grid.Rows[0][0] != "Aruba" || grid.Rows[1][1] != "22720000" {
		t.Errorf("rows = %v", grid.Rows)
	}
	if grid.Columns[0].Width != nameColumnWidth || grid.Columns[1].Width != defaultColumnWidth {
		t.Errorf("widths = %d/%d, want %d/%d", grid.Columns[0].Width, grid.Columns[1].Width, nameColumnWidth, defaultColumnWidth)
	}

	mock.ExpectClose()
	if err := conn.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sql expectations: %v", err)
	}
}

func TestSubmit_BlankInputHasNoSideEffects(t *testing.T) {
	tr := &fakeTranslator{reply: "SELECT 1"}
	exec := &fakeExecutor{result: &mariadb.Result{Columns: []string{"1"}, Rows: []mariadb.Row{{"1": int64(1)}}}}
	s := newTestSession(tr, exec)

	if _, err := s.Submit(context.Background(), "before"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	before, _ := s.Grid()

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := s.Submit(context.Background(), text)
		if !errors.Is(err, ErrBlankInput) {
			t.Errorf("Submit(%q) error = %v, want ErrBlankInput", text, err)
		}
	}

	if len(tr.calls) != 1 || len(exec.queries) != 1 {
		t.Errorf("calls = %d translate, %d execute; want 1 and 1", len(tr.calls), len(exec.queries))
	}
	if s.LastInput() != "before" {
		t.Errorf("LastInput() = %q, want before", s.LastInput())
	}
	after, visible := s.Grid()
	if !visible || len(after.Rows) != len(before.Rows) {
		t.Error("blank submit changed the grid")
	}
}

func TestSubmit_EmptyResultKeepsPreviousGrid(t *testing.T) {
	tr := &fakeTranslator{reply: "SELECT name FROM country"}
	exec := &fakeExecutor{result: &mariadb.Result{
		Columns: []string{"name"},
		Rows:    []mariadb.Row{{"name": "Aruba"}},
	}}
	s := newTestSession(tr, exec)

	if _, err := s.Submit(context.Background(), "first"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	exec.result = &mariadb.Result{Columns: []string{"name"}}
	sub, err := s.Submit(context.Background(), "nothing matches")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if sub.Rendered {
		t.Error("Rendered = true for empty result")
	}
	grid, visible := s.Grid()
	if !visible || len(grid.Rows) != 1 || grid.Rows[0][0] != "Aruba" {
		t.Errorf("grid = %v (visible %v), want previous content", grid.Rows, visible)
	}
}

func TestSubmit_EmptyResultWhileHiddenStaysHidden(t *testing.T) {
	tr := &fakeTranslator{reply: "SELECT 1 LIMIT 0"}
	s := newTestSession(tr, &fakeExecutor{result: &mariadb.Result{}})

	if _, err := s.Submit(context.Background(), "nothing"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, visible := s.Grid(); visible {
		t.Error("grid visible after empty first result")
	}
}

func TestSubmit_Errors(t *testing.T) {
	translateErr := apperr.New(apperr.CodeTranslation, "model unavailable")
	execErr := mariadb.ErrQueryExecution.WithCause(errors.New("Table 'world.x' doesn't exist"))

	tests := []struct {
		name     string
		tr       *fakeTranslator
		exec     Executor
		opts     []Option
		wantCode apperr.Code
		wantExec int
	}{
		{"not connected", &fakeTranslator{reply: "SELECT 1"}, nil, nil, apperr.CodeNotConnected, 0},
		{"translation", &fakeTranslator{err: translateErr}, &fakeExecutor{}, nil, apperr.CodeTranslation, 0},
		{"execution", &fakeTranslator{reply: "SELECT * FROM x"}, &fakeExecutor{err: execErr}, nil, apperr.CodeQueryExecution, 1},
		{"guard", &fakeTranslator{reply: "DROP TABLE country"}, &fakeExecutor{}, []Option{WithGuard(ReadOnlyGuard{})}, apperr.CodeRejectedStatement, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(tt.tr, tt.exec, tt.opts...)
			_, err := s.Submit(context.Background(), "question")
			if got := apperr.GetCode(err); got != tt.wantCode {
				t.Errorf("Submit() code = %v, want %v (err %v)", got, tt.wantCode, err)
			}
			if fe, ok := tt.exec.(*fakeExecutor); ok && len(fe.queries) != tt.wantExec {
				t.Errorf("execute calls = %d, want %d", len(fe.queries), tt.wantExec)
			}
			if _, visible := s.Grid(); visible {
				t.Error("grid visible after failed submit")
			}
		})
	}
}

func TestSubmit_SetConnection(t *testing.T) {
	tr := &fakeTranslator{reply: "SELECT 1"}
	s := newTestSession(tr, nil)

	if _, err := s.Submit(context.Background(), "q"); !apperr.HasCode(err, apperr.CodeNotConnected) {
		t.Fatalf("Submit() error = %v, want NOT_CONNECTED", err)
	}

	exec := &fakeExecutor{result: &mariadb.Result{}}
	s.SetConnection(exec)
	if _, err := s.Submit(context.Background(), "q"); err != nil {
		t.Errorf("Submit() after SetConnection error = %v", err)
	}
	if len(exec.queries) != 1 {
		t.Errorf("execute calls = %d, want 1", len(exec.queries))
	}
}

func TestClear(t *testing.T) {
	tr := &fakeTranslator{reply: "SELECT 1"}
	exec := &fakeExecutor{result: &mariadb.Result{Columns: []string{"1"}, Rows: []mariadb.Row{{"1": 1}}}}
	s := newTestSession(tr, exec)

	if _, err := s.Submit(context.Background(), "one"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	s.Clear()

	if s.LastInput() != "" {
		t.Errorf("LastInput() = %q, want empty", s.LastInput())
	}
	if _, visible := s.Grid(); visible {
		t.Error("grid visible after Clear")
	}
}

type fakeSchema struct {
	tables []mariadb.TableSchema
	err    error
}

func (f fakeSchema) DescribeSchema(context.Context) ([]mariadb.TableSchema, error) {
	return f.tables, f.err
}

func TestLoadSchema(t *testing.T) {
	tr := &fakeTranslator{}
	s := newTestSession(tr, nil)

	tables := []mariadb.TableSchema{{Name: "country", Columns: []mariadb.ColumnInfo{{Name: "name", Type: "char(52)"}}}}
	if err := s.LoadSchema(context.Background(), fakeSchema{tables: tables}); err != nil {
		t.Fatalf("LoadSchema() error = %v", err)
	}
	if tr.schema != mariadb.FormatSchema(tables) {
		t.Errorf("schema = %q, want %q", tr.schema, mariadb.FormatSchema(tables))
	}

	boom := errors.New("boom")
	if err := s.LoadSchema(context.Background(), fakeSchema{err: boom}); !errors.Is(err, boom) {
		t.Errorf("LoadSchema() error = %v, want %v", err, boom)
	}
}

func TestLast(t *testing.T) {
	tr := &fakeTranslator{reply: "```sql\nSELECT name FROM country\n```"}
	s := newTestSession(tr, &fakeExecutor{result: &mariadb.Result{}}, WithGuard(ReadOnlyGuard{}))

	if s.Last() != nil {
		t.Fatal("Last() != nil before any submit")
	}
	if _, err := s.Submit(context.Background(), "countries"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	last := s.Last()
	if last.Reply != tr.reply || last.SQL != "SELECT name FROM country" {
		t.Errorf("Last() = {Reply %q, SQL %q}, want raw reply and cleaned SQL", last.Reply, last.SQL)
	}

	tr.reply = "DELETE FROM country"
	if _, err := s.Submit(context.Background(), "delete them"); err == nil {
		t.Fatal("Submit() error = nil, want rejection")
	}
	if got := s.Last().SQL; got != "DELETE FROM country" {
		t.Errorf("Last().SQL = %q after rejection, want the rejected statement", got)
	}

	if _, err := s.Submit(context.Background(), "   "); err == nil {
		t.Fatal("blank Submit() error = nil")
	}
	if got := s.Last().Input; got != "delete them" {
		t.Errorf("Last().Input = %q, blank input must not replace it", got)
	}
}
