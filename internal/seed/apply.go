package seed

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shoptalk/shoptalk/internal/config"
)

type Counts struct {
	Sales       int
	Ads         int
	Eligibility int
}

// EnsureSchema creates the warehouse tables if they do not exist. The DDL
// is restricted to types both DuckDB and Postgres accept, so the in-memory
// dev warehouse and a migrated Postgres database end up with the same shape.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS product_total_sales (
	date DATE NOT NULL,
	item_id BIGINT NOT NULL,
	total_sales DOUBLE PRECISION NOT NULL DEFAULT 0,
	total_units_ordered BIGINT NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS product_ad_sales (
	date DATE NOT NULL,
	item_id BIGINT NOT NULL,
	ad_sales DOUBLE PRECISION NOT NULL DEFAULT 0,
	impressions BIGINT NOT NULL DEFAULT 0,
	ad_spend DOUBLE PRECISION NOT NULL DEFAULT 0,
	clicks BIGINT NOT NULL DEFAULT 0,
	units_sold BIGINT NOT NULL DEFAULT 0
)`,
		`CREATE TABLE IF NOT EXISTS product_eligibility (
	eligibility_datetime_utc TIMESTAMP NOT NULL,
	item_id BIGINT NOT NULL,
	eligibility BOOLEAN NOT NULL,
	message VARCHAR
)`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("ensure warehouse schema: %w", err)
		}
	}
	return nil
}

// Apply inserts a generated dataset in one transaction.
func Apply(ctx context.Context, db *sql.DB, driver config.WarehouseDriver, params Params) (Counts, error) {
	ds := Generate(params)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Counts{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	salesStmt := fmt.Sprintf(
		`INSERT INTO product_total_sales (date, item_id, total_sales, total_units_ordered) VALUES %s`,
		placeholders(driver, 4),
	)
	for _, row := range ds.Sales {
		if _, err := tx.ExecContext(ctx, salesStmt, row.Date, row.ItemID, row.TotalSales, row.TotalUnitsOrdered); err != nil {
			return Counts{}, fmt.Errorf("insert product_total_sales: %w", err)
		}
	}

	adsStmt := fmt.Sprintf(
		`INSERT INTO product_ad_sales (date, item_id, ad_sales, impressions, ad_spend, clicks, units_sold) VALUES %s`,
		placeholders(driver, 7),
	)
	for _, row := range ds.Ads {
		if _, err := tx.ExecContext(ctx, adsStmt, row.Date, row.ItemID, row.AdSales, row.Impressions, row.AdSpend, row.Clicks, row.UnitsSold); err != nil {
			return Counts{}, fmt.Errorf("insert product_ad_sales: %w", err)
		}
	}

	eligibilityStmt := fmt.Sprintf(
		`INSERT INTO product_eligibility (eligibility_datetime_utc, item_id, eligibility, message) VALUES %s`,
		placeholders(driver, 4),
	)
	for _, row := range ds.Eligibility {
		if _, err := tx.ExecContext(ctx, eligibilityStmt, row.At, row.ItemID, row.Eligible, row.Message); err != nil {
			return Counts{}, fmt.Errorf("insert product_eligibility: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Counts{}, fmt.Errorf("commit seed data: %w", err)
	}
	return Counts{Sales: len(ds.Sales), Ads: len(ds.Ads), Eligibility: len(ds.Eligibility)}, nil
}

// LoadCSVDir loads <table>.csv files from dir into their matching warehouse
// tables using DuckDB's CSV reader. Only the known warehouse tables are
// considered; other files are ignored.
func LoadCSVDir(ctx context.Context, db *sql.DB, dir string) (map[string]int64, error) {
	tables := []string{"product_total_sales", "product_ad_sales", "product_eligibility"}
	loaded := make(map[string]int64)

	for _, table := range tables {
		csvPath := filepath.Join(dir, table+".csv")
		if _, err := os.Stat(csvPath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("stat %q: %w", csvPath, err)
		}
		query := fmt.Sprintf(
			`INSERT INTO %s SELECT * FROM read_csv_auto('%s', header=true)`,
			table, strings.ReplaceAll(csvPath, "'", "''"),
		)
		result, err := db.ExecContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", csvPath, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			rows = -1
		}
		loaded[table] = rows
	}
	return loaded, nil
}

func placeholders(driver config.WarehouseDriver, count int) string {
	parts := make([]string, count)
	for i := range parts {
		if driver == config.DriverPostgres {
			parts[i] = fmt.Sprintf("$%d", i+1)
		} else {
			parts[i] = "?"
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
