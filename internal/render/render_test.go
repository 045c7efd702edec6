package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shoptalk/shoptalk/internal/warehouse"
)

func TestRowObjectsPreservesColumnOrder(t *testing.T) {
	rs := warehouse.ResultSet{
		Columns: []string{"zeta", "alpha", "mid"},
		Rows: [][]any{
			{1, "a", 2.5},
			{2, "b", nil},
		},
	}

	raw, err := RowObjects(rs)
	if err != nil {
		t.Fatalf("RowObjects() error = %v", err)
	}
	want := `[{"zeta":1,"alpha":"a","mid":2.5},{"zeta":2,"alpha":"b","mid":null}]`
	if string(raw) != want {
		t.Fatalf("RowObjects() = %s, want %s", raw, want)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != rs.RowCount() {
		t.Fatalf("decoded length = %d, want %d", len(decoded), rs.RowCount())
	}
}

func TestRowObjectsSingleAggregate(t *testing.T) {
	rs := warehouse.ResultSet{
		Columns: []string{"total_sales"},
		Rows:    [][]any{{1042.75}},
	}
	raw, err := RowObjects(rs)
	if err != nil {
		t.Fatalf("RowObjects() error = %v", err)
	}
	if string(raw) != `[{"total_sales":1042.75}]` {
		t.Fatalf("RowObjects() = %s", raw)
	}
}

func TestRowObjectsEmptyResultSet(t *testing.T) {
	raw, err := RowObjects(warehouse.ResultSet{Columns: []string{"c"}})
	if err != nil {
		t.Fatalf("RowObjects() error = %v", err)
	}
	if string(raw) != `[]` {
		t.Fatalf("RowObjects() = %s", raw)
	}
}

func TestTokensCarrySQLAndProse(t *testing.T) {
	var collected []string
	for token := range Tokens("SELECT 1;", "Total sales were $208.50.") {
		collected = append(collected, token)
	}
	joined := strings.Join(collected, "")
	if !strings.Contains(joined, "SQL: SELECT 1;") {
		t.Fatalf("stream missing SQL preamble: %q", joined)
	}
	if !strings.Contains(joined, "Total sales were $208.50.") {
		t.Fatalf("stream missing prose: %q", joined)
	}
	if len(collected) < 4 {
		t.Fatalf("token count = %d, want word-level chunks", len(collected))
	}
}

func TestTokensStopWhenConsumerStops(t *testing.T) {
	count := 0
	for range Tokens("SELECT 1", "one two three four five") {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("consumed %d tokens", count)
	}
}

func TestChartZeroRowsFails(t *testing.T) {
	_, err := Chart("anything", warehouse.ResultSet{Columns: []string{"c"}})
	if err == nil {
		t.Fatal("Chart() expected error for zero rows")
	}
}

func TestChartNonNumericFails(t *testing.T) {
	rs := warehouse.ResultSet{
		Columns: []string{"item_id", "message"},
		Rows:    [][]any{{"sku-1", "listed"}},
	}
	if _, err := Chart("eligibility", rs); err == nil {
		t.Fatal("Chart() expected error without numeric column")
	}
}

func TestChartRaggedRowsFail(t *testing.T) {
	tests := []struct {
		name string
		rows [][]any
	}{
		{"short first row", [][]any{{"sku-1"}, {"sku-2", 88.0}}},
		{"short later row", [][]any{{"sku-1", 120.5}, {"sku-2"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rs := warehouse.ResultSet{
				Columns: []string{"item_id", "total_sales"},
				Rows:    tc.rows,
			}
			if _, err := Chart("sales by item", rs); err == nil {
				t.Fatal("Chart() expected error for ragged rows")
			}
		})
	}
}

func TestChartTitleTruncatesOnRunes(t *testing.T) {
	question := strings.Repeat("ü", 80)
	title := chartTitle(question)
	if !utf8.ValidString(title) {
		t.Fatalf("title is not valid UTF-8: %q", title)
	}
	want := strings.Repeat("ü", 60) + "..."
	if title != want {
		t.Fatalf("chartTitle() = %q, want %q", title, want)
	}
}

func TestChartPicksBarForCategoricalRows(t *testing.T) {
	rs := warehouse.ResultSet{
		Columns: []string{"item_id", "total_sales"},
		Rows: [][]any{
			{"sku-1", 120.5},
			{"sku-2", 88.0},
		},
	}
	result, err := Chart("sales by item", rs)
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	if result.Shape != ShapeBar {
		t.Fatalf("Shape = %q", result.Shape)
	}
	assertPNG(t, result.PNG)
}

func TestChartPicksLineForDateSeries(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := make([][]any, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, []any{base.AddDate(0, 0, i), float64(100 + i*10)})
	}
	rs := warehouse.ResultSet{
		Columns: []string{"date", "total_sales"},
		Rows:    rows,
	}

	result, err := Chart("sales over time", rs)
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	if result.Shape != ShapeLine {
		t.Fatalf("Shape = %q", result.Shape)
	}
	assertPNG(t, result.PNG)
}

func TestChartParsesDateStrings(t *testing.T) {
	rs := warehouse.ResultSet{
		Columns: []string{"date", "ad_spend"},
		Rows: [][]any{
			{"2024-06-01", 10.0},
			{"2024-06-02", 12.0},
			{"2024-06-03", 9.5},
			{"2024-06-04", 14.25},
		},
	}
	result, err := Chart("spend", rs)
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	if result.Shape != ShapeLine {
		t.Fatalf("Shape = %q", result.Shape)
	}
}

func assertPNG(t *testing.T, data []byte) {
	t.Helper()
	if len(data) == 0 {
		t.Fatal("empty image")
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("not a PNG, first bytes = %x", data[:min(8, len(data))])
	}
}
