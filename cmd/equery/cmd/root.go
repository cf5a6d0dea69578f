package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/englishquery/pkg/core/config"
	"github.com/msto63/englishquery/pkg/core/health"
	"github.com/msto63/englishquery/pkg/core/logging"
	"github.com/msto63/englishquery/pkg/core/metrics"
	"github.com/msto63/englishquery/pkg/core/version"
)

var (
	cfgFile     string
	verbose     bool
	metricsAddr string

	appConfig     *config.Config
	metricsServer *metrics.Server
	healthChecks  *health.Registry
)

var rootCmd = &cobra.Command{
	Use:   "equery",
	Short: "englishquery - ask your MariaDB database questions in plain English",
	Long: `englishquery turns plain English (typed or spoken) into SQL with an
AI model, runs it on a MariaDB database and shows the result.

Commands:
  query    - login prompt and interactive query screen (default)
  repl     - line-oriented SQL shell with /askai
  listen   - record one phrase and print the transcription
  devices  - list microphones
  version  - show component versions`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	RunE:               runQuery,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $EQUERY_CONFIG, ./equery.toml, ~/.config/equery/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

// fullScreen lists commands that own the terminal; they log to file only
var fullScreen = map[string]bool{"equery": true, "query": true}

func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfgFile != "" {
		appConfig, err = config.Load(cfgFile)
	} else {
		appConfig, err = config.LoadFromEnv()
	}
	if err != nil {
		printError("failed to load configuration", err)
		return err
	}

	logCfg := logging.LoggerConfig{
		ServiceName: appConfig.General.Name,
		Level:       appConfig.General.LogLevel,
		Format:      appConfig.General.LogFormat,
		File:        appConfig.General.LogFile,
	}
	if verbose {
		logCfg.Level = "debug"
	}
	if fullScreen[cmd.Name()] {
		logCfg.Quiet = true
		if logCfg.File == "" {
			logCfg.File = filepath.Join(appConfig.General.DataDir, "equery.log")
		}
	}
	if err := logging.Configure(logCfg); err != nil {
		printError("failed to configure logging", err)
		return err
	}

	logger := logging.New("equery")
	logger.Info("Starting", "version", version.Application, "command", cmd.Name())
	for _, name := range version.Components() {
		logger.Debug("Component", "name", name, "version", version.ComponentVersion(name))
	}

	healthChecks = health.NewRegistry(appConfig.General.Name, version.Application)

	addr := metricsAddr
	if addr == "" && appConfig.Metrics.Enabled {
		addr = appConfig.Metrics.Address
	}
	if addr != "" {
		metricsServer, err = metrics.Start(context.Background(), addr, metrics.Route{
			Pattern: "GET /healthz",
			Handler: health.Handler(healthChecks, 2*time.Second),
		})
		if err != nil {
			printError("failed to start metrics endpoint", err)
			return err
		}
		logger.Info("Metrics endpoint listening", "address", metricsServer.Addr())
	}
	return nil
}

func teardown(*cobra.Command, []string) error {
	if metricsServer != nil {
		_ = metricsServer.Close()
		metricsServer = nil
	}
	_ = logging.Sync()
	return nil
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
