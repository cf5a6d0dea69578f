package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/msto63/englishquery/internal/mariadb"
	"github.com/msto63/englishquery/internal/orchestrator"
	"github.com/msto63/englishquery/pkg/core/health"
	"github.com/msto63/englishquery/pkg/core/logging"
)

// previewRows is how many rows the shell prints per result
const previewRows = 5

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Line-oriented SQL shell",
	Long: `Connects with the configured credentials and reads statements line by line.

  <sql>            run the statement
  /askai <text>    translate text to SQL and run it
  /stream <sql>    run a query and print every row as it arrives
  /bye, /exit      leave the shell`,
	RunE: runREPL,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runREPL(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.New("repl")

	cfg := connectionConfig(appConfig)
	if cfg.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Printf("Password for %s: ", cfg.User)
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		cfg.Password = string(pw)
	}

	conn := mariadb.New(cfg, mariadb.WithLogger(logging.New("mariadb")))
	if err := conn.Connect(ctx); err != nil {
		printError("connection failed", err)
		return err
	}
	defer conn.Close()
	healthChecks.Register(health.PingCheck("database", conn))
	healthChecks.Register(health.TCPCheck("database_host", conn.Config().Address(), 2*time.Second))
	defer healthChecks.Unregister("database")
	defer healthChecks.Unregister("database_host")

	var session *orchestrator.Session
	if apiKey, err := appConfig.APIKey(); err != nil {
		logger.Warn("/askai disabled", "error", err)
	} else {
		stack, err := buildTranslator(ctx, appConfig, apiKey)
		if err != nil {
			logger.Warn("/askai disabled", "error", err)
		} else {
			defer stack.Close()
			session = buildSession(ctx, appConfig, stack.translator, conn)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      fmt.Sprintf("%s> ", cfg.Database),
		HistoryFile: filepath.Join(appConfig.General.DataDir, "repl_history.txt"),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("Connected to %s\n", cfg.String())
	sh := &shell{conn: conn, session: session, out: rl.Stdout(), chunkSize: appConfig.Database.StreamChunkSize}
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !sh.handle(ctx, line) {
			return nil
		}
	}
}

// shell runs single input lines against a connection
type shell struct {
	conn      *mariadb.Connection
	session   *orchestrator.Session
	out       io.Writer
	chunkSize int
}

// handle processes one line and reports whether the shell continues
func (s *shell) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return true
	case line == "/bye" || line == "/exit" || line == "/quit":
		fmt.Fprintln(s.out, "Bye")
		return false
	case line == "/askai" || strings.HasPrefix(line, "/askai "):
		s.askAI(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/askai")))
	case strings.HasPrefix(line, "/stream "):
		s.stream(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/stream")))
	case strings.HasPrefix(line, "/"):
		fmt.Fprintf(s.out, "   Unknown command %s\n", strings.Fields(line)[0])
	default:
		s.runSQL(ctx, line)
	}
	return true
}

func (s *shell) askAI(ctx context.Context, text string) {
	if s.session == nil {
		fmt.Fprintln(s.out, "   /askai is not available: translator not configured")
		return
	}
	sub, err := s.session.Submit(ctx, text)
	if sub != nil && sub.SQL != "" {
		fmt.Fprintf(s.out, "   SQL: %s\n", sub.SQL)
	}
	if err != nil {
		fmt.Fprintf(s.out, "   Error: %v\n", err)
		return
	}
	printResult(s.out, sub.Result, sub.Elapsed)
}

func (s *shell) runSQL(ctx context.Context, query string) {
	start := time.Now()
	if isModification(query) {
		n, err := s.conn.ExecuteModify(ctx, query)
		if err != nil {
			fmt.Fprintf(s.out, "   Error: %v\n", err)
			return
		}
		fmt.Fprintf(s.out, "   → %d rows affected (%s)\n", n, time.Since(start).Round(time.Millisecond))
		return
	}
	res, err := s.conn.Execute(ctx, query)
	if err != nil {
		fmt.Fprintf(s.out, "   Error: %v\n", err)
		return
	}
	printResult(s.out, res, time.Since(start))
}

func (s *shell) stream(ctx context.Context, query string) {
	st, err := s.conn.StreamQuery(ctx, query, s.chunkSize)
	if err != nil {
		fmt.Fprintf(s.out, "   Error: %v\n", err)
		return
	}
	defer st.Close()

	columns := st.Columns()
	fmt.Fprintf(s.out, "   %s\n", strings.Join(columns, " | "))
	n := 0
	for row, err := range st.All() {
		if err != nil {
			fmt.Fprintf(s.out, "   Error: %v\n", err)
			return
		}
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = orchestrator.Cell(row, c)
		}
		fmt.Fprintf(s.out, "   → %s\n", strings.Join(cells, " | "))
		n++
	}
	fmt.Fprintf(s.out, "   %d rows streamed\n", n)
}

// modifying lists the leading keywords sent through ExecuteModify.
// Everything else runs through Execute so result sets are kept.
var modifying = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "REPLACE": true,
	"CREATE": true, "ALTER": true, "DROP": true, "TRUNCATE": true,
	"RENAME": true, "GRANT": true, "REVOKE": true, "LOAD": true,
}

func isModification(query string) bool {
	fields := strings.FieldsFunc(stripLeadingComments(query), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	return len(fields) > 0 && modifying[strings.ToUpper(fields[0])]
}

// stripLeadingComments drops "-- ", "#" and "/* */" comments before
// the first keyword
func stripLeadingComments(query string) string {
	for {
		query = strings.TrimSpace(query)
		switch {
		case strings.HasPrefix(query, "--"), strings.HasPrefix(query, "#"):
			end := strings.IndexByte(query, '\n')
			if end < 0 {
				return ""
			}
			query = query[end+1:]
		case strings.HasPrefix(query, "/*"):
			end := strings.Index(query, "*/")
			if end < 0 {
				return ""
			}
			query = query[end+2:]
		default:
			return query
		}
	}
}

func printResult(w io.Writer, res *mariadb.Result, elapsed time.Duration) {
	if res == nil || res.Empty() {
		fmt.Fprintln(w, "   → No rows returned")
		return
	}
	grid := orchestrator.Render(res)
	titles := make([]string, len(grid.Columns))
	for i, c := range grid.Columns {
		titles[i] = c.Title
	}
	fmt.Fprintf(w, "   %s\n", strings.Join(titles, " | "))
	for _, row := range grid.Rows[:min(previewRows, len(grid.Rows))] {
		fmt.Fprintf(w, "   → %s\n", strings.Join(row, " | "))
	}
	if extra := len(grid.Rows) - previewRows; extra > 0 {
		fmt.Fprintf(w, "   ... and %d more rows\n", extra)
	}
	fmt.Fprintf(w, "   %d rows (%s)\n", len(grid.Rows), elapsed.Round(time.Millisecond))
}
