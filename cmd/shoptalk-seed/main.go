package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/seed"
	"github.com/shoptalk/shoptalk/internal/warehouse/duckdb"
	"github.com/shoptalk/shoptalk/internal/warehouse/postgres"
)

func main() {
	days := flag.Int("days", 30, "days of history to generate")
	items := flag.Int("items", 12, "number of distinct items")
	randomSeed := flag.Int64("seed", 1, "random seed for reproducible data")
	csvDir := flag.String("csv-dir", "", "load <table>.csv files from this directory instead of generating (duckdb only)")
	ensureSchema := flag.Bool("ensure-schema", true, "create warehouse tables if missing")
	flag.Parse()

	cfg, err := config.LoadFromEnv("shoptalk-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, cleanup, err := openDB(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warehouse open error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if *ensureSchema {
		if err := seed.EnsureSchema(ctx, db.DB()); err != nil {
			fmt.Fprintf(os.Stderr, "schema error: %v\n", err)
			os.Exit(1)
		}
	}

	if *csvDir != "" {
		if cfg.Warehouse.Driver != config.DriverDuckDB {
			fmt.Fprintln(os.Stderr, "-csv-dir requires the duckdb warehouse driver")
			os.Exit(1)
		}
		loaded, err := seed.LoadCSVDir(ctx, db.DB(), *csvDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "csv load failed: %v\n", err)
			os.Exit(1)
		}
		for table, rows := range loaded {
			fmt.Printf("loaded %s: %d row(s)\n", table, rows)
		}
		return
	}

	counts, err := seed.Apply(ctx, db.DB(), cfg.Warehouse.Driver, seed.Params{
		Days:  *days,
		Items: *items,
		Seed:  *randomSeed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d sales, %d ad, %d eligibility row(s)\n", counts.Sales, counts.Ads, counts.Eligibility)
}

type warehouseDB interface {
	DB() *sql.DB
}

func openDB(ctx context.Context, cfg config.Config) (warehouseDB, func(), error) {
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
		return engine, func() { _ = engine.Close() }, nil
	}
}
