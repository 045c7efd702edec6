package postgres

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/shoptalk/shoptalk/internal/warehouse"
)

func TestExecuteReturnsResultSet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()
	engine := NewEngine(db)

	mock.ExpectQuery("SELECT SUM\\(total_sales\\) AS total_sales FROM product_total_sales").
		WillReturnRows(sqlmock.NewRows([]string{"total_sales"}).AddRow(1042.75))

	result, err := engine.Execute(context.Background(), warehouse.Request{
		SQL: "SELECT SUM(total_sales) AS total_sales FROM product_total_sales;",
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.RowCount() != 1 {
		t.Fatalf("RowCount() = %d", result.RowCount())
	}
	if result.Columns[0] != "total_sales" {
		t.Fatalf("Columns = %v", result.Columns)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExecuteSurfacesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()
	engine := NewEngine(db)

	mock.ExpectQuery("SELECT bogus_column FROM product_total_sales").
		WillReturnError(errors.New(`column "bogus_column" does not exist`))

	_, err = engine.Execute(context.Background(), warehouse.Request{
		SQL: "SELECT bogus_column FROM product_total_sales",
	})
	if err == nil {
		t.Fatal("Execute() expected driver error")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("Open() expected error without DSN")
	}
}

func TestHealthCheckPings(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()
	engine := NewEngine(db)

	mock.ExpectPing()
	if err := engine.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
}
