package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shoptalk/shoptalk/internal/answer"
	"github.com/shoptalk/shoptalk/internal/api"
	"github.com/shoptalk/shoptalk/internal/archive"
	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/nl2sql"
	"github.com/shoptalk/shoptalk/internal/observability"
	"github.com/shoptalk/shoptalk/internal/schema"
	"github.com/shoptalk/shoptalk/internal/seed"
	s3store "github.com/shoptalk/shoptalk/internal/storage/s3"
	"github.com/shoptalk/shoptalk/internal/warehouse"
	"github.com/shoptalk/shoptalk/internal/warehouse/duckdb"
	"github.com/shoptalk/shoptalk/internal/warehouse/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("shoptalk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.ValidateForServing(); err != nil {
		slog.Error("invalid serving config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := openWarehouse(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer cleanup()

	descriptor := schema.NewDescriptor()
	if cfg.Schema.SampleRows > 0 {
		descriptor = descriptor.WithSamples(ctx, engine, cfg.Schema.SampleRows)
	}

	client, err := nl2sql.NewOpenAIClient(nl2sql.OpenAIConfig{
		BaseURL:      cfg.AI.BaseURL,
		APIKey:       cfg.AI.APIKey,
		Model:        cfg.AI.Model,
		SummaryModel: cfg.AI.SummaryModel,
		Temperature:  cfg.AI.Temperature,
		Timeout:      cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize model client", slog.Any("error", err))
		os.Exit(1)
	}

	var recorder answer.Recorder
	var fetcher api.ArchiveFetcher
	if cfg.Archive.Enabled {
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Archive.Endpoint,
			Region:           cfg.Archive.Region,
			Bucket:           cfg.Archive.Bucket,
			AccessKeyID:      cfg.Archive.AccessKeyID,
			SecretAccessKey:  cfg.Archive.SecretAccessKey,
			UseSSL:           cfg.Archive.UseSSL,
			Prefix:           cfg.Archive.Prefix,
			AutoCreateBucket: cfg.Archive.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize answer archive", slog.Any("error", err))
			os.Exit(1)
		}
		archiver, err := archive.NewArchiver(store, logger)
		if err != nil {
			logger.Error("failed to initialize answer archive", slog.Any("error", err))
			os.Exit(1)
		}
		recorder = archiver
		fetcher = archiver
	}

	service, err := answer.NewService(answer.Config{
		Translator: client,
		Summarizer: client,
		Engine:     engine,
		SchemaText: descriptor.Describe(),
		Dialect:    dialectFor(cfg.Warehouse.Driver),
		Recorder:   recorder,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to build answer service", slog.Any("error", err))
		os.Exit(1)
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:   logger,
		Answerer: service,
		Archive:  fetcher,
		Readiness: api.CombineReadinessChecks(
			api.CheckWarehouse(engine),
			api.CheckAIConfig(cfg),
		),
		DependencyTimeout: time.Second,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openWarehouse(ctx context.Context, cfg config.Config, logger *slog.Logger) (warehouse.Engine, func(), error) {
	switch cfg.Warehouse.Driver {
	case config.DriverPostgres:
		engine, err := postgres.Open(ctx, postgres.Config{
			DSN:             cfg.Warehouse.PostgresDSN,
			MaxOpenConns:    cfg.Warehouse.MaxOpenConns,
			MaxIdleConns:    cfg.Warehouse.MaxIdleConns,
			ConnMaxIdleTime: cfg.Warehouse.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Warehouse.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return engine, func() { _ = engine.Close() }, nil
	default:
		engine, err := duckdb.Open(ctx, duckdb.Config{Path: cfg.Warehouse.DuckDBPath})
		if err != nil {
			return nil, nil, err
		}
		// An in-memory warehouse starts empty; give it the schema and a
		// seed so questions have something to answer.
		if cfg.Warehouse.DuckDBPath == ":memory:" {
			if err := seed.EnsureSchema(ctx, engine.DB()); err != nil {
				_ = engine.Close()
				return nil, nil, err
			}
			counts, err := seed.Apply(ctx, engine.DB(), config.DriverDuckDB, seed.Params{})
			if err != nil {
				_ = engine.Close()
				return nil, nil, err
			}
			logger.Info("seeded in-memory warehouse",
				slog.Int("sales_rows", counts.Sales),
				slog.Int("ad_rows", counts.Ads),
				slog.Int("eligibility_rows", counts.Eligibility))
		}
		return engine, func() { _ = engine.Close() }, nil
	}
}

func dialectFor(driver config.WarehouseDriver) string {
	if driver == config.DriverPostgres {
		return "PostgreSQL"
	}
	return "DuckDB"
}
