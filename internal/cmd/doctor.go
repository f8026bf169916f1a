package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/prospectlens/prospectlens/internal/ailink"
	"github.com/prospectlens/prospectlens/internal/config"
	"github.com/prospectlens/prospectlens/internal/core/columns"
	"github.com/prospectlens/prospectlens/internal/observability"
	"github.com/prospectlens/prospectlens/internal/server"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on configuration, the prospect sheet, the store and the LLM provider.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := appConfig
		logger := observability.CLILogger

		logger.Info("=== " + config.AppName + " doctor ===")
		logger.Info("")
		logger.Info("Running diagnostic checks...")
		logger.Info("")

		allChecks := true
		totalChecks := 7

		// Check 1: Go version
		goVersion := runtime.Version()
		logger.Info(fmt.Sprintf("[1/%d] Checking Go runtime... ✅ %s %s/%s", totalChecks, goVersion, runtime.GOOS, runtime.GOARCH),
			zap.String("go_version", goVersion))

		// Check 2: Gofulmen and Crucible
		version := crucible.GetVersion()
		if version.Gofulmen != "" && version.Crucible != "" {
			logger.Info(fmt.Sprintf("[2/%d] Checking Gofulmen... ✅ v%s (crucible v%s)", totalChecks, version.Gofulmen, version.Crucible))
		} else {
			logger.Warn(fmt.Sprintf("[2/%d] Checking Gofulmen... ⚠️  version metadata unavailable", totalChecks))
			allChecks = false
		}

		// Check 3: Config file
		configPath := config.DefaultConfigPath()
		if used := cfgFile; used != "" {
			configPath = used
		}
		if fileExists(configPath) {
			logger.Info(fmt.Sprintf("[3/%d] Checking config... ✅ %s", totalChecks, configPath), zap.String("config_path", configPath))
		} else {
			logger.Warn(fmt.Sprintf("[3/%d] Checking config... ⚠️  %s not found (defaults in use; run '%s doctor init')", totalChecks, configPath, config.AppName))
		}
		if err := cfg.Validate(); err != nil {
			logger.Error(fmt.Sprintf("       invalid configuration: %v", err))
			allChecks = false
		}

		// Check 4: Sheet
		sess, err := openSession(ctx, cfg, false)
		if err != nil {
			logger.Error(fmt.Sprintf("[4/%d] Checking sheet... ❌ %v", totalChecks, err))
			logger.Warn(fmt.Sprintf("[5/%d] Checking columns... ⚠️  skipped", totalChecks))
			allChecks = false
		} else {
			defer sess.Close()
			snap, loadErr := sess.enricher.Load(ctx)
			if loadErr != nil {
				logger.Error(fmt.Sprintf("[4/%d] Checking sheet... ❌ %v", totalChecks, loadErr), zap.Error(loadErr))
				logger.Warn(fmt.Sprintf("[5/%d] Checking columns... ⚠️  skipped", totalChecks))
				allChecks = false
			} else {
				logger.Info(fmt.Sprintf("[4/%d] Checking sheet... ✅ %s/%s (%d rows, %d columns)", totalChecks,
					cfg.Sheet.Backend, cfg.Sheet.Table, len(snap.Dataset.Rows), len(snap.Dataset.Columns)))

				// Check 5: Column resolution
				missing := missingEnrichFields(cfg.Enrich.Fields, snap.Resolution)
				if len(missing) == 0 {
					logger.Info(fmt.Sprintf("[5/%d] Checking columns... ✅ %d fields resolved", totalChecks, len(snap.Resolution.Mapping)))
				} else {
					logger.Warn(fmt.Sprintf("[5/%d] Checking columns... ⚠️  no column for: %s", totalChecks, strings.Join(missing, ", ")))
					logger.Info("       Add aliases under columns.aliases or rename the sheet headers.")
				}
			}
		}

		// Check 6: Store
		if file := storeFile(cfg.Store); file != "" && !fileExists(file) {
			logger.Warn(fmt.Sprintf("[6/%d] Checking store... ⚠️  %s (not created yet)", totalChecks, file))
		} else if db, err := openStore(ctx, cfg); err != nil {
			logger.Warn(fmt.Sprintf("[6/%d] Checking store... ⚠️  %v", totalChecks, err), zap.Error(err))
			allChecks = false
		} else {
			schema, _ := db.SchemaVersion(ctx)
			detail := fmt.Sprintf("schema v%d", schema)
			if info, statErr := os.Stat(file); file != "" && statErr == nil {
				detail += ", " + formatFileSize(info.Size())
			}
			logger.Info(fmt.Sprintf("[6/%d] Checking store... ✅ %s (%s)", totalChecks, db.Target(), detail),
				zap.String("store", db.Target()),
				zap.Int("schema_version", schema))
			_ = db.Close()
		}

		// Check 7: LLM provider
		if providers := cfg.AILink.ReadyProviders(); len(providers) > 0 {
			logger.Info(fmt.Sprintf("[7/%d] Checking LLM provider... ✅ %s", totalChecks, strings.Join(providers, ", ")))
		} else {
			logger.Warn(fmt.Sprintf("[7/%d] Checking LLM provider... ⚠️  not configured", totalChecks))
			logger.Info("       Enrichment requires a provider under ailink.providers with an API key.")
			allChecks = false
		}

		logger.Info("")
		if allChecks {
			logger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", config.AppName))
		} else {
			logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		logger.Info("")
		logger.Info("=== End Diagnostics ===")
	},
}

var (
	doctorInitForce    bool
	doctorInitProvider string
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file (to --config when given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := strings.TrimSpace(cfgFile)
		if configPath == "" {
			configPath = config.DefaultConfigPath()
		}
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		body, err := buildInitConfig(doctorInitProvider)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		if err := os.WriteFile(configPath, body, 0600); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		logger := observability.CLILogger

		configPath := config.DefaultConfigPath()
		dataDir := config.DefaultDataDir()

		logger.Info("Configuration:")
		logger.Info(fmt.Sprintf("  Config file:    %s (%s)", configPath, existenceStatus(fileExists(configPath))))
		if dataDir != "" {
			logger.Info(fmt.Sprintf("  Data directory: %s (%s)", dataDir, existenceStatus(fileExists(dataDir))))
		} else {
			logger.Info("  Data directory: (not resolved)")
		}

		logger.Info("")
		logger.Info("Environment:")
		for _, name := range providerKeyEnv(cfg.AILink) {
			logger.Info(fmt.Sprintf("  %s: %s", name, envStatus(name)))
		}
		logger.Info(fmt.Sprintf("  %s: %s", server.AdminTokenEnv, envStatus(server.AdminTokenEnv)))

		logger.Info("")
		logger.Info("Effective Settings:")
		logger.Info(fmt.Sprintf("  sheet.backend: %s", cfg.Sheet.Backend))
		logger.Info(fmt.Sprintf("  sheet.path: %s", cfg.Sheet.Path))
		logger.Info(fmt.Sprintf("  sheet.table: %s", cfg.Sheet.Table))
		logger.Info(fmt.Sprintf("  enrich.min_interval: %s", cfg.Enrich.MinInterval))
		logger.Info(fmt.Sprintf("  enrich.fields: %s", strings.Join(cfg.Enrich.Fields, ", ")))
		logger.Info(fmt.Sprintf("  enrich.history: %t", cfg.Enrich.History))
		logger.Info(fmt.Sprintf("  store.optimistic_writes: %t", cfg.Store.OptimisticWrites))
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appConfig.Validate(); err != nil {
			return &exitError{code: foundry.ExitConfigInvalid, err: err}
		}
		observability.CLILogger.Info("Config is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitProvider, "provider", "gemini", "provider skeleton to write: gemini, openai or xai")
}

// missingEnrichFields lists enrichable fields the sheet has no column for.
func missingEnrichFields(fields []string, res columns.Resolution) []string {
	var missing []string
	for _, field := range fields {
		if _, ok := res.Mapping.Column(field); !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// storeFile returns the local database file for cfg, or "" for remote and
// in-memory stores.
func storeFile(cfg config.StoreConfig) string {
	if strings.TrimSpace(cfg.URL) != "" {
		return ""
	}
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		path = config.DefaultStorePath()
	}
	if path == ":memory:" || strings.HasPrefix(path, "libsql:") {
		return ""
	}
	path = strings.TrimPrefix(strings.TrimPrefix(path, "file:"), "//")
	path, _, _ = strings.Cut(path, "?")
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// providerKeyEnv names the environment variables overriding the first key of
// each configured provider.
func providerKeyEnv(cfg ailink.Config) []string {
	names := make([]string, 0, len(cfg.Providers))
	for id := range cfg.Providers {
		slug := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(id))
		names = append(names, fmt.Sprintf("%s_AILINK_PROVIDERS_%s_CREDENTIALS_0_API_KEY", config.EnvPrefix, slug))
	}
	sort.Strings(names)
	return names
}

func buildInitConfig(provider string) ([]byte, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	id := provider + "-main"

	driverName := provider
	baseURL := ""
	models := map[string]string{"default": ""}
	switch provider {
	case "gemini":
		models["default"] = "gemini-2.5-flash"
	case "openai":
		models["default"] = "gpt-4o-mini"
	case "xai":
		baseURL = "https://api.x.ai/v1"
		models["default"] = "grok-4-fast"
	default:
		return nil, fmt.Errorf("unknown provider %q (want gemini, openai or xai)", provider)
	}

	providerCfg := map[string]any{
		"enabled":     true,
		"ai_provider": driverName,
		"models":      models,
		"credentials": []map[string]any{{"enabled": true, "label": "default", "api_key": ""}},
	}
	if baseURL != "" {
		providerCfg["base_url"] = baseURL
	}

	doc := map[string]any{
		"sheet": map[string]any{
			"backend":   "csv",
			"path":      ".",
			"table":     "prospects",
			"delimiter": ";",
		},
		"columns": map[string]any{
			"identity": config.FieldName,
			"priority": config.FieldPriority,
			"aliases":  config.DefaultAliases(),
		},
		"enrich": map[string]any{
			"fields":       config.DefaultEnrichFields(),
			"min_interval": "12s",
			"history":      true,
		},
		"crm": map[string]any{
			"statuses": config.DefaultStatuses(),
		},
		"ailink": map[string]any{
			"default_provider": id,
			"providers":        map[string]any{id: providerCfg},
		},
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render config: %w", err)
	}
	header := fmt.Sprintf("# %s configuration\n# Set the API key here or via %s.\n",
		config.AppName, strings.Join(providerKeyEnv(ailink.Config{Providers: map[string]ailink.ProviderInstanceConfig{id: {}}}), ", "))
	return append([]byte(header), body...), nil
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "set"
	}
	return "not set"
}

// formatFileSize returns human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
