package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/shoptalk/shoptalk/internal/warehouse"
)

type Config struct {
	// Path of the database file. ":memory:" opens an in-process transient
	// database, which the seed loader and tests use.
	Path string
}

type Engine struct {
	db *sql.DB
}

func Open(ctx context.Context, cfg Config) (*Engine, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("duckdb path is required")
	}
	dsn := cfg.Path
	if dsn == ":memory:" {
		dsn = ""
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	return &Engine{db: db}, nil
}

func (e *Engine) Execute(ctx context.Context, request warehouse.Request) (warehouse.ResultSet, error) {
	return warehouse.QueryIntoResultSet(ctx, e.db, request.SQL)
}

func (e *Engine) HealthCheck(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping duckdb: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for DDL and bulk loads.
func (e *Engine) DB() *sql.DB {
	return e.db
}

func (e *Engine) Close() error {
	return e.db.Close()
}
