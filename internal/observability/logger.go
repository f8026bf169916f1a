package observability

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

// Logging profiles accepted by Init.
const (
	ProfileSimple     = "SIMPLE"
	ProfileStructured = "STRUCTURED"
)

var (
	// CLILogger is used for CLI commands (SIMPLE profile)
	CLILogger *logging.Logger

	// ServerLogger is used for the HTTP server (STRUCTURED profile)
	ServerLogger *logging.Logger

	fallbackOnce   sync.Once
	fallbackLogger *logging.Logger
)

// InitCLILogger initializes the CLI logger with SIMPLE profile
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}

	if verbose {
		logger.SetLevel(logging.DEBUG)
	}

	CLILogger = logger
}

// InitServerLogger initializes the server logger with STRUCTURED profile.
// The optional namespace is attached to every entry.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	logger, err := newStructured(serviceName, logLevel, namespace...)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

// Init sets up CLILogger from the configured profile. STRUCTURED switches the
// CLI to JSON lines on stderr, which suits cron-driven batch enrichment.
func Init(serviceName, profile, level string, verbose bool) {
	if !strings.EqualFold(strings.TrimSpace(profile), ProfileStructured) {
		InitCLILogger(serviceName, verbose)
		if !verbose && strings.TrimSpace(level) != "" {
			applyLevel(CLILogger, level)
		}
		return
	}
	if verbose {
		level = "debug"
	}
	logger, err := newStructured(serviceName, level)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize logger", err)
	}
	CLILogger = logger
}

// Logger returns the server logger when serving, else the CLI logger. Before
// either is initialized a quiet CLI logger is returned so callers never get nil.
func Logger() *logging.Logger {
	if ServerLogger != nil {
		return ServerLogger
	}
	if CLILogger != nil {
		return CLILogger
	}
	fallbackOnce.Do(func() {
		logger, err := logging.NewCLI("prospectlens")
		if err == nil {
			logger.SetLevel(logging.WARN)
			fallbackLogger = logger
		}
	})
	return fallbackLogger
}

func newStructured(serviceName, logLevel string, namespace ...string) (*logging.Logger, error) {
	staticFields := make(map[string]any)
	if len(namespace) > 0 && namespace[0] != "" {
		staticFields["namespace"] = namespace[0]
	}

	config := &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(logLevel),
		Service:      serviceName,
		Environment:  environment(),
		StaticFields: staticFields,
		Middleware: []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "json",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}

	return logging.New(config)
}

func environment() string {
	if env := strings.TrimSpace(os.Getenv("PROSPECTLENS_ENV")); env != "" {
		return env
	}
	return "production"
}

func applyLevel(logger *logging.Logger, level string) {
	switch parseLogLevel(level) {
	case "TRACE":
		logger.SetLevel(logging.TRACE)
	case "DEBUG":
		logger.SetLevel(logging.DEBUG)
	case "WARN":
		logger.SetLevel(logging.WARN)
	case "ERROR":
		logger.SetLevel(logging.ERROR)
	default:
		logger.SetLevel(logging.INFO)
	}
}

// parseLogLevel converts a config log level to a logging severity string
func parseLogLevel(levelStr string) string {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "info":
		return "INFO"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// exitWithCodeStderr exits with a semantic exit code, writing to stderr.
// Used for logger initialization failures before any logger is available.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: %s (exit code: %d)\n", msg, exitCode)
		}
		os.Exit(int(exitCode))
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)

	os.Exit(info.Code)
}
