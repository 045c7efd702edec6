package warehouse

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestQueryIntoResultSetMaterializesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT item_id, total_sales FROM product_total_sales").
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "total_sales"}).
			AddRow("sku-1", 120.5).
			AddRow("sku-2", 88.0))

	result, err := QueryIntoResultSet(context.Background(), db, "SELECT item_id, total_sales FROM product_total_sales;")
	if err != nil {
		t.Fatalf("QueryIntoResultSet() error = %v", err)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "item_id" {
		t.Fatalf("Columns = %v", result.Columns)
	}
	if result.RowCount() != 2 {
		t.Fatalf("RowCount() = %d", result.RowCount())
	}
	if result.Rows[0][0] != "sku-1" {
		t.Fatalf("Rows[0][0] = %v", result.Rows[0][0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryIntoResultSetNormalizesBytes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT message FROM product_eligibility").
		WillReturnRows(sqlmock.NewRows([]string{"message"}).AddRow([]byte("listed")))

	result, err := QueryIntoResultSet(context.Background(), db, "SELECT message FROM product_eligibility")
	if err != nil {
		t.Fatalf("QueryIntoResultSet() error = %v", err)
	}
	if got, ok := result.Rows[0][0].(string); !ok || got != "listed" {
		t.Fatalf("Rows[0][0] = %#v, want string %q", result.Rows[0][0], "listed")
	}
}

func TestQueryIntoResultSetRejectsEmptySQL(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := QueryIntoResultSet(context.Background(), db, "  ;; "); err == nil {
		t.Fatal("expected error for empty sql")
	}
}

func TestStripTrailingSemicolons(t *testing.T) {
	cases := map[string]string{
		"SELECT 1;":        "SELECT 1",
		"SELECT 1 ; ; ":    "SELECT 1",
		"  SELECT 1  ":     "SELECT 1",
		"SELECT ';' AS c;": "SELECT ';' AS c",
	}
	for input, want := range cases {
		if got := StripTrailingSemicolons(input); got != want {
			t.Fatalf("StripTrailingSemicolons(%q) = %q, want %q", input, got, want)
		}
	}
}
