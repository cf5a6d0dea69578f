package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/englishquery/internal/mariadb"
	"github.com/msto63/englishquery/internal/tui/login"
	"github.com/msto63/englishquery/internal/tui/query"
	"github.com/msto63/englishquery/pkg/core/health"
	"github.com/msto63/englishquery/pkg/core/logging"
)

var noVoice bool

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Log in and open the interactive query screen",
	Long: `Shows the login prompt, then the query screen.

Keys on the query screen:
  ctrl+s / alt+enter   translate and run the question
  ctrl+r               start or stop voice input
  ctrl+l               clear input and results
  pgup / pgdown        scroll the result table
  esc / ctrl+c         quit`,
	RunE: runQuery,
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, queryCmd} {
		c.Flags().BoolVar(&noVoice, "no-voice", false, "disable voice input")
	}
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, _ []string) error {
	logger := logging.New("equery")

	apiKey, err := appConfig.APIKey()
	if err != nil {
		printError("translator not configured", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base := connectionConfig(appConfig)
	conn, err := login.Run(ctx, login.CredentialsFrom(base),
		login.NewConnector(base, mariadb.WithLogger(logging.New("mariadb"))))
	if err != nil {
		printError("login failed", err)
		return err
	}
	if conn == nil {
		logger.Info("Login cancelled")
		return nil
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("Failed to close connection", "error", err)
		}
	}()
	logger.Info("Connected", "database", conn.Config().String())
	healthChecks.Register(health.PingCheck("database", conn))
	healthChecks.Register(health.TCPCheck("database_host", conn.Config().Address(), 2*time.Second))
	defer healthChecks.Unregister("database")
	defer healthChecks.Unregister("database_host")

	stack, err := buildTranslator(ctx, appConfig, apiKey)
	if err != nil {
		printError("failed to create translator", err)
		return err
	}
	defer stack.Close()

	session := buildSession(ctx, appConfig, stack.translator, conn)

	var voice query.Voice
	if !noVoice {
		if l, err := buildListener(appConfig); err != nil {
			logger.Warn("Voice input disabled", "error", err)
		} else {
			voice = l
		}
	}

	title := fmt.Sprintf("%s - %s", appConfig.General.Name, conn.Config().String())
	return query.Run(ctx, session, voice, title)
}
