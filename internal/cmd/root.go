// Package cmd implements the prospectlens command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/ailink/driver"
	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/observability"
	"github.com/prospectlens/prospectlens/internal/server/handlers"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	// appConfig is decoded once per invocation in PersistentPreRunE.
	appConfig *config.Config

	stopTracing func()

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Prospect sheet CRM with LLM enrichment",
	Long: `prospectlens keeps a sheet of prospect companies and fills missing facts
(revenue, EBITDA, debt, shareholders, news) by asking an LLM provider.

The sheet is a delimited file or a libsql table. Column headers are matched to
fields through configurable aliases, so existing sheets work unchanged.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopTracing != nil {
			stopTracing()
			stopTracing = nil
		}
	},
}

// Execute runs the root command. Map a failure with ExitCodeFor.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Config loading must not emit metrics to stdout; serve installs real telemetry.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/prospectlens/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.StringVar(&traceFile, "trace", "", "trace provider requests/responses to NDJSON file")
	flags.StringP("output-format", "o", "table", "output format: table, json, markdown")
	flags.String("out", "", "write output to file instead of stdout")
	flags.String("sheet", "", "directory holding the csv sheet (overrides sheet.path)")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("sheet.path", flags.Lookup("sheet"))
}

// initConfig loads configuration, initializes the CLI logger and enables tracing.
func initConfig(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	used, err := config.Prepare(v, cfgFile)
	if err != nil {
		return &exitError{code: foundry.ExitConfigInvalid, err: err}
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return &exitError{code: foundry.ExitConfigInvalid, err: err}
	}
	appConfig = cfg

	observability.Init(config.AppName, cfg.Logging.Profile, cfg.Logging.Level, verbose)
	logger := observability.CLILogger
	if used != "" {
		logger.Debug("Using config file", zap.String("path", used))
	} else {
		logger.Debug("No config file found, using defaults and environment variables")
	}

	if traceFile != "" {
		stop, err := driver.EnableTracing(traceFile)
		if err != nil {
			return fmt.Errorf("enable tracing: %w", err)
		}
		stopTracing = stop
		logger.Debug("Provider tracing enabled", zap.String("file", traceFile))
	}
	return nil
}
