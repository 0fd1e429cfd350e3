package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"matchlens/ingest-service/internal/clock"
	"matchlens/ingest-service/internal/config"
	"matchlens/ingest-service/internal/db"
	"matchlens/ingest-service/internal/events"
	"matchlens/ingest-service/internal/footballdata"
	"matchlens/ingest-service/internal/ingest"
	"matchlens/ingest-service/internal/logging"
	"matchlens/ingest-service/internal/rawstore"
)

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "matchlens",
		Short: "football-data.org raw ingest service",
		Long: `matchlens fetches competitions from football-data.org and stores the raw
JSON payloads, at most once per key per freshness window.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or /etc/matchlens/config.yaml)")

	root.AddCommand(
		newServeCmd(&cfgFile),
		newIngestCmd(&cfgFile),
		newMigrateCmd(&cfgFile),
	)
	return root
}

// app holds the wired dependencies shared by serve and ingest.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   rawstore.Store
	service *ingest.Service

	pool *pgxpool.Pool
	rdb  *redis.Client
}

func loadConfig(cfgFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		"storage", cfg.Storage.Driver,
		"api_key_source", cfg.FootballData.APIKeySource,
		"requests_per_minute", cfg.FootballData.RequestsPerMinute)
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory raw store; records are lost on exit")
		a.store = rawstore.NewMemoryStore(clock.System{})
	default:
		if cfg.Database.Migrate {
			v, err := db.Migrate(cfg.Database.URL)
			if err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("database schema up to date", "version", v)
		}
		pool, err := db.NewPostgresPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		logger.Info("PostgreSQL connected")
		a.pool = pool
		a.store = rawstore.NewPostgresStore(pool)
	}

	var publisher ingest.Publisher = events.Discard{}
	if cfg.Redis.URL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		logger.Info("Redis connected")
		a.rdb = rdb
		publisher = events.NewRedisPublisher(rdb)
	}

	fd := cfg.FootballData
	client, err := footballdata.NewClient(footballdata.Config{
		BaseURL:           fd.BaseURL,
		APIKey:            fd.APIKey,
		UserAgent:         fd.UserAgent,
		ConnectTimeout:    fd.ConnectTimeout,
		ReadTimeout:       fd.ReadTimeout,
		RequestTimeout:    fd.RequestTimeout,
		RequestsPerMinute: fd.RequestsPerMinute,
		MaxAttempts:       fd.MaxAttempts,
		InitialBackoff:    fd.InitialBackoff,
		MaxBackoff:        fd.MaxBackoff,
	}, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("football-data client: %w", err)
	}

	a.service = ingest.NewService(client, a.store, clock.System{}, ingest.Options{
		FreshnessWindow: cfg.Ingest.FreshnessWindow,
		Publisher:       publisher,
		Logger:          logger,
	})
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
