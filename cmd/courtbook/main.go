package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"courtbook/internal/api"
	"courtbook/internal/booking"
	"courtbook/internal/cache"
	"courtbook/internal/config"
	"courtbook/internal/db"
	"courtbook/internal/events"
	"courtbook/internal/metrics"
	"courtbook/internal/notify"
	"courtbook/internal/search"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load(os.Getenv("COURTBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := db.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	searchCache := cache.New(rdb, cfg.CacheTTL(), &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	// Initial load + hot reload of the court catalog
	catalog := config.NewCatalogStore(nil)
	err = config.WatchCatalog(ctx, cfg.CatalogPath, cfg.CatalogReloadInterval(), func(updated *config.Catalog) {
		catalog.Replace(updated)
		if err := searchCache.Flush(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to flush search cache")
		}
		metrics.IncCatalogReload(true)
		logger.Info().Stringer("catalog", updated).Time("reloaded_at", time.Now()).Msg("court catalog loaded")
	}, func(err error) {
		metrics.IncCatalogReload(false)
		logger.Error().Err(err).Msg("court catalog reload failed, keeping previous version")
	})
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("failed to load court catalog")
	}

	bus := events.NewEventBus(&logger)
	rules := booking.Rules{
		MinDuration:             cfg.BookingMinDuration(),
		MaxSubscriptionDays:     cfg.MaxSubscriptionDays(),
		DefaultSubscriptionDays: cfg.DefaultSubscriptionDays(),
	}
	bookings := booking.NewService(database, bus, catalog, rules, &logger)
	searcher := search.NewService(catalog, searchCache, &logger)

	if token := cfg.Telegram.BotToken; token != "" && token != "YOUR_BOT_TOKEN_HERE" {
		notifier, err := notify.NewFromToken(token, cfg.Telegram.Debug, cfg.Telegram.Managers, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifications disabled")
		} else {
			notifier.Subscribe(bus)
			go notifier.Run(ctx, bookings)
			logger.Info().Int("managers", len(cfg.Telegram.Managers)).Msg("telegram notifications enabled")

			if cfg.Telegram.Digest.Enabled {
				startDigest(ctx, cfg, bookings, notifier, &logger)
			}
		}
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		go startBackupLoop(ctx, database, cfg, &logger)
	}

	if cfg.Server.ManagerAPIKey == "" {
		logger.Warn().Msg("server.manager_api_key is empty, manager endpoints are locked")
	}
	server := api.NewHTTPServer(api.Options{
		Address:           cfg.Server.Address,
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		ManagerAPIKey:     cfg.Server.ManagerAPIKey,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, bookings, searcher, &logger)

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	logger.Info().Msg("courtbook started")
	if err := server.Start(); err != nil {
		logger.Error().Err(err).Msg("API server error")
	}
	logger.Info().Msg("courtbook stopped")
}

func startDigest(ctx context.Context, cfg *config.Config, lister notify.BookingLister, notifier *notify.Notifier, logger *zerolog.Logger) {
	digestCfg := notify.DefaultDigestConfig()
	if cfg.Telegram.Digest.Timezone != "" {
		digestCfg.Timezone = cfg.Telegram.Digest.Timezone
	}
	hour, minute, err := cfg.DigestClock()
	if err != nil {
		logger.Error().Err(err).Msg("manager digest disabled")
		return
	}
	digestCfg.Hour, digestCfg.Minute = hour, minute

	digest, err := notify.NewDigest(digestCfg, lister, notifier, logger)
	if err != nil {
		logger.Error().Err(err).Msg("manager digest disabled")
		return
	}
	go digest.Start(ctx)
}

func startBackupLoop(ctx context.Context, database *db.DB, cfg *config.Config, logger *zerolog.Logger) {
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "backups"
	}
	if cfg.Backup.IntervalHours <= 0 {
		cfg.Backup.IntervalHours = 24
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = 14
	}

	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	interval := time.Duration(cfg.Backup.IntervalHours) * time.Hour
	retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour

	select {
	case <-time.After(1 * time.Minute):
		runBackupTask(database, cfg, retention, logger)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBackupTask(database, cfg, retention, logger)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(database *db.DB, cfg *config.Config, retention time.Duration, logger *zerolog.Logger) {
	dest := filepath.Join(cfg.Backup.Path, fmt.Sprintf("courtbook_%s.db", time.Now().Format("20060102_150405")))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := database.Backup(dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	} else {
		logger.Info().Msg("backup completed")
	}

	deleted, err := database.CleanupBackups(cfg.Backup.Path, retention)
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serve(ctx, &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}, "metrics", logger)
}

func serve(ctx context.Context, srv *http.Server, name string, logger *zerolog.Logger) {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
