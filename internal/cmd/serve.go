package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oasislearninghub/oasis/internal/analytics"
	"github.com/oasislearninghub/oasis/internal/appid"
	"github.com/oasislearninghub/oasis/internal/config"
	"github.com/oasislearninghub/oasis/internal/core/stats"
	errwrap "github.com/oasislearninghub/oasis/internal/errors"
	"github.com/oasislearninghub/oasis/internal/metrics"
	"github.com/oasislearninghub/oasis/internal/observability"
	"github.com/oasislearninghub/oasis/internal/server"
	"github.com/oasislearninghub/oasis/internal/server/handlers"
	"github.com/oasislearninghub/oasis/internal/session"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read the config file (logged; restart to apply)

On shutdown the server stops accepting requests, closes every session and
flushes pending gate statistics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig()
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "invalid configuration")
		}

		observability.InitServerLogger(cfg.Logging.Level, cfg.Logging.Profile)
		logger := observability.ServerLogger

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(cfg.Metrics.Port); err != nil {
				logger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}
		metrics.SetServerStartTime(time.Now().Unix())

		logger.Info("Initializing server",
			zap.String("service", appid.Get().BinaryName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()))

		db, err := openStore(ctx, cfg.Store)
		if err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "failed to open enrollment store")
		}

		policies, err := cfg.Policies()
		if err != nil {
			_ = db.Close()
			return errwrap.WrapConfigInvalid(ctx, err, "invalid rate limit policies")
		}

		backend, rdb := newStatsBackend(cfg.Redis)
		gateStats := stats.NewAsync(backend, cfg.Redis.Buffer, logger)

		opts := sessionOptions(cfg, logger)
		opts.Policies = policies
		opts.Stats = gateStats
		opts.Enrollments = db

		manager := session.NewManager(opts,
			session.WithIdleTTL(cfg.Session.IdleTTL),
			session.WithMaxSessions(cfg.Session.MaxSessions))

		runCtx, stopRun := context.WithCancel(context.Background())
		go manager.Run(runCtx, cfg.Session.ReapInterval)

		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("store", handlers.HealthCheckFunc(db.Ping))
		if rdb != nil {
			hm.RegisterChecker("gate_stats", handlers.Optional{
				HealthChecker: handlers.HealthCheckFunc(func(ctx context.Context) error {
					return rdb.Ping(ctx).Err()
				}),
			})
		}
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", handlers.Optional{
				HealthChecker: handlers.HealthCheckFunc(func(context.Context) error {
					if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
						return errwrap.NewInternalError("telemetry system not initialized")
					}
					return nil
				}),
			})
		}

		srv := server.New(serverConfig(cfg), server.Deps{
			Sessions:    manager,
			Enrollments: db,
			Policies:    policies,
			Health:      hm,
		})

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP first, then sessions, then
		// stores, then the logger.
		signals.OnShutdown(func(ctx context.Context) error {
			if err := logger.Sync(); err != nil {
				logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			gateStats.Close()
			if dropped := gateStats.Dropped(); dropped > 0 {
				logger.Warn("Gate statistics dropped", zap.Int64("count", dropped))
			}
			if rdb != nil {
				_ = rdb.Close()
			}
			if err := db.Close(); err != nil {
				return errwrap.WrapDatabaseError(ctx, err, "store close failed")
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			stopRun()
			manager.Shutdown(ctx)
			logger.Info("Sessions closed")
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}
			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: re-reading configuration")
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					logger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}
			if _, err := config.LoadFrom(viper.GetViper()); err != nil {
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}
			logger.Info("Configuration re-read; restart to apply listener and policy changes",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}
		return nil
	},
}

// sessionOptions maps the session, carousel and notice sections onto
// session options. Stores and policies are filled in by the caller.
func sessionOptions(cfg *config.Config, logger *logging.Logger) session.Options {
	opts := session.DefaultOptions()
	if cfg.Session.Slides > 0 {
		opts.Slides = cfg.Session.Slides
	}
	opts.Carousel.Autoplay = cfg.Carousel.Autoplay
	if cfg.Carousel.Interval > 0 {
		opts.Carousel.Interval = cfg.Carousel.Interval
	}
	if cfg.Carousel.ResumeDelay > 0 {
		opts.Carousel.ResumeDelay = cfg.Carousel.ResumeDelay
	}
	if cfg.Carousel.SwipeThreshold > 0 {
		opts.Carousel.SwipeThreshold = cfg.Carousel.SwipeThreshold
	}
	if cfg.Notice.DismissAfter > 0 {
		opts.DismissAfter = cfg.Notice.DismissAfter
	}
	opts.PrimaryButtons = cfg.Session.PrimaryButtons
	opts.Tracker = analytics.LogTracker{Logger: logger}
	opts.Logger = logger
	return opts
}

// newStatsBackend returns the Redis store when an address is configured and
// an in-memory store otherwise. The client is nil in the latter case.
func newStatsBackend(cfg config.RedisConfig) (stats.Store, *redis.Client) {
	if cfg.Addr == "" {
		return stats.NewMemoryStore(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return stats.NewRedisStore(rdb,
		stats.WithPrefix(cfg.Prefix),
		stats.WithTTL(cfg.TTL)), rdb
}

func serverConfig(cfg *config.Config) server.Config {
	host, port := cfg.Server.Host, cfg.Server.Port
	if serverHost != "" {
		host = serverHost
	}
	if serverPort != 0 {
		port = serverPort
	}
	return server.Config{
		Host:         host,
		Port:         port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Ingress: server.IngressConfig{
			Enabled:   cfg.Ingress.Enabled,
			RPS:       cfg.Ingress.RPS,
			Burst:     cfg.Ingress.Burst,
			ClientTTL: cfg.Ingress.ClientTTL,
		},
		ControlToken: cfg.Control.Token,
		Metrics:      cfg.Metrics.Enabled,
		Pprof:        cfg.Debug.Enabled && cfg.Debug.PprofEnabled,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides server.host)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "server port (overrides server.port)")
}
