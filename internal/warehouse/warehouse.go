package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Request carries a SQL statement produced upstream. The text is handed to
// the driver as-is: the warehouse performs no validation or rewriting of its
// own beyond trimming trailing semicolons.
type Request struct {
	SQL string
}

// ResultSet is the fully materialized output of one query. It is immutable
// once produced; formatters read it without mutating it.
type ResultSet struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

func (rs ResultSet) RowCount() int {
	return len(rs.Rows)
}

type Engine interface {
	Execute(ctx context.Context, request Request) (ResultSet, error)
	HealthCheck(ctx context.Context) error
}

// QueryIntoResultSet runs sqlText against db and materializes every row
// before returning. []byte column values are normalized to string so the
// result is JSON-friendly regardless of driver.
func QueryIntoResultSet(ctx context.Context, db *sql.DB, sqlText string) (ResultSet, error) {
	sqlText = StripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return ResultSet{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return ResultSet{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return ResultSet{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return ResultSet{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, fmt.Errorf("iterate rows: %w", err)
	}

	return ResultSet{
		Columns:  columns,
		Rows:     resultRows,
		Duration: time.Since(start),
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
