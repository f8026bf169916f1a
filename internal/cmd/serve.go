package cmd

import (
	"context"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/prospectlens/prospectlens/internal/config"
	errwrap "github.com/prospectlens/prospectlens/internal/errors"
	"github.com/prospectlens/prospectlens/internal/metrics"
	"github.com/prospectlens/prospectlens/internal/observability"
	"github.com/prospectlens/prospectlens/internal/server"
	"github.com/prospectlens/prospectlens/internal/server/handlers"
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with graceful shutdown support.

Endpoints:
  • /api/v1/prospects         list, search and filter prospects
  • /api/v1/prospects/{name}  show or PATCH a prospect
  • /api/v1/prospects/{name}/enrich  run one enrichment
  • /health, /health/*        health probes
  • /version, /metrics

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (logging level only; restart for the rest)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		namespace := config.AppName

		observability.InitServerLogger(config.AppName, cfg.Logging.Level, namespace)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(namespace, cfg.Server.Host, cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.Wrap(cmd.Context(), errwrap.CodeInternal, err, "metrics initialization failed")
			}
		}

		sess, err := openSession(cmd.Context(), cfg, true)
		if err != nil {
			return err
		}

		logger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()),
			zap.String("sheet_backend", cfg.Sheet.Backend),
			zap.String("sheet_table", cfg.Sheet.Table))

		health := handlers.NewHealthManager(versionInfo.Version)
		health.SetStarted(false)
		if cfg.Health.Enabled {
			health.RegisterChecker("sheet", handlers.SheetChecker{Store: sess.sheet, Table: cfg.Sheet.Table})
			if cfg.Metrics.Enabled {
				health.RegisterChecker("telemetry", telemetryHealthChecker{})
			}
		}

		srv := server.New(server.Options{
			Host:          cfg.Server.Host,
			Port:          cfg.Server.Port,
			ReadTimeout:   cfg.Server.ReadTimeout,
			WriteTimeout:  cfg.Server.WriteTimeout,
			IdleTimeout:   cfg.Server.IdleTimeout,
			Prospects:     sess.enricher,
			PriorityField: cfg.Columns.Priority,
			Statuses:      cfg.CRM.Statuses,
			Health:        health,
			AdminToken:    os.Getenv(server.AdminTokenEnv),
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: server first, then store, then logger.
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			sess.Close()
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.Wrap(ctx, errwrap.CodeInternal, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					logger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.Wrap(ctx, errwrap.CodeValidationFailed, err, "config reload failed")
			}

			reloaded, err := config.Decode(viper.GetViper())
			if err != nil {
				logger.Error("Reloaded config is invalid", zap.Error(err))
				return errwrap.Wrap(ctx, errwrap.CodeValidationFailed, err, "config reload failed")
			}
			observability.InitServerLogger(config.AppName, reloaded.Logging.Level, namespace)
			logger = observability.ServerLogger
			if sess.cache != nil {
				sess.cache.Invalidate(cfg.Sheet.Table)
			}

			logger.Info("Configuration reloaded",
				zap.String("file", viper.ConfigFileUsed()),
				zap.String("log_level", reloaded.Logging.Level))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		if cfg.Metrics.Enabled {
			metrics.SetServerStartTime(time.Now().Unix())
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		health.SetStarted(true)

		if err := <-errChan; err != nil {
			return errwrap.Wrap(cmd.Context(), errwrap.CodeInternal, err, "server error")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
