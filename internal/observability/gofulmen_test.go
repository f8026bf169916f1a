package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/observability"
)

func TestLoggers(t *testing.T) {
	t.Run("CLI logger creation", func(t *testing.T) {
		observability.InitCLILogger("test-service", false)

		if observability.CLILogger == nil {
			t.Fatal("CLI logger should not be nil after initialization")
		}

		observability.CLILogger.Info("Test CLI log message",
			zap.String("subject", "Acme"))
	})

	t.Run("Structured logger creation", func(t *testing.T) {
		observability.InitServerLogger("test-service", "info", "prospectlens")

		if observability.ServerLogger == nil {
			t.Fatal("Server logger should not be nil after initialization")
		}
		if observability.Logger() != observability.ServerLogger {
			t.Fatal("Logger should prefer the server logger once serving")
		}

		observability.ServerLogger.Info("Test structured log message",
			zap.String("component", "test"),
			zap.Int("rows", 123))
		observability.ServerLogger = nil
	})

	t.Run("Profile selection", func(t *testing.T) {
		observability.Init("test-service", "STRUCTURED", "warn", false)
		if observability.CLILogger == nil {
			t.Fatal("structured profile should set the CLI logger")
		}

		observability.Init("test-service", "simple", "error", true)
		if observability.CLILogger == nil {
			t.Fatal("simple profile should set the CLI logger")
		}
		observability.CLILogger.Debug("verbose wins over level", zap.String("mode", "verbose"))
	})

	t.Run("Simple profile validates", func(t *testing.T) {
		config := &logging.LoggerConfig{
			Profile:      logging.ProfileSimple,
			DefaultLevel: "INFO",
			Service:      "schema-test",
			Environment:  "test",
			Sinks: []logging.SinkConfig{
				{
					Type:   "console",
					Format: "console",
					Console: &logging.ConsoleSinkConfig{
						Stream:   "stderr",
						Colorize: false,
					},
				},
			},
		}

		logger, err := logging.New(config)
		if err != nil {
			t.Fatalf("Failed to create logger: %v", err)
		}
		if logger == nil {
			t.Fatal("Logger should not be nil after creation")
		}
	})
}

func TestLoggerNeverNil(t *testing.T) {
	saved := observability.CLILogger
	observability.CLILogger = nil
	defer func() { observability.CLILogger = saved }()

	if observability.Logger() == nil {
		t.Fatal("Logger should fall back to a quiet CLI logger")
	}
}

func TestCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	if version.Gofulmen == "" {
		t.Error("Gofulmen version should not be empty")
	}
	if crucible.GetVersionString() == "" {
		t.Error("Version string should not be empty")
	}
}
