package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shoptalk/shoptalk/internal/warehouse"
)

type Column struct {
	Name string
	Type string
}

type Table struct {
	Name    string
	Columns []Column
}

// Warehouse returns the static table catalog of the e-commerce warehouse.
// The set is fixed for the process lifetime.
func Warehouse() []Table {
	return []Table{
		{
			Name: "product_total_sales",
			Columns: []Column{
				{Name: "date", Type: "DATE"},
				{Name: "item_id", Type: "BIGINT"},
				{Name: "total_sales", Type: "DOUBLE"},
				{Name: "total_units_ordered", Type: "BIGINT"},
			},
		},
		{
			Name: "product_ad_sales",
			Columns: []Column{
				{Name: "date", Type: "DATE"},
				{Name: "item_id", Type: "BIGINT"},
				{Name: "ad_sales", Type: "DOUBLE"},
				{Name: "impressions", Type: "BIGINT"},
				{Name: "ad_spend", Type: "DOUBLE"},
				{Name: "clicks", Type: "BIGINT"},
				{Name: "units_sold", Type: "BIGINT"},
			},
		},
		{
			Name: "product_eligibility",
			Columns: []Column{
				{Name: "eligibility_datetime_utc", Type: "TIMESTAMP"},
				{Name: "item_id", Type: "BIGINT"},
				{Name: "eligibility", Type: "BOOLEAN"},
				{Name: "message", Type: "VARCHAR"},
			},
		},
	}
}

type tableSample struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Descriptor renders the prompt context handed to the LLM. The description
// is built once at startup and never changes afterwards.
type Descriptor struct {
	tables  []Table
	samples map[string]tableSample
}

func NewDescriptor() *Descriptor {
	return &Descriptor{tables: Warehouse()}
}

// WithSamples enriches the descriptor with up to sampleRows example rows per
// table, fetched from the warehouse. A table whose sample query fails is left
// without samples; the static description still stands.
func (d *Descriptor) WithSamples(ctx context.Context, engine warehouse.Engine, sampleRows int) *Descriptor {
	if engine == nil || sampleRows <= 0 {
		return d
	}
	samples := make(map[string]tableSample, len(d.tables))
	for _, table := range d.tables {
		result, err := engine.Execute(ctx, warehouse.Request{
			SQL: fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table.Name), sampleRows),
		})
		if err != nil || result.RowCount() == 0 {
			continue
		}
		samples[table.Name] = tableSample{Columns: result.Columns, Rows: result.Rows}
	}
	if len(samples) > 0 {
		d.samples = samples
	}
	return d
}

// Describe returns the schema text used as LLM context.
func (d *Descriptor) Describe() string {
	var b strings.Builder
	b.WriteString("Tables:\n")
	for i, table := range d.tables {
		parts := make([]string, 0, len(table.Columns))
		for _, column := range table.Columns {
			parts = append(parts, fmt.Sprintf("%s (%s)", column.Name, column.Type))
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, table.Name, strings.Join(parts, ", "))
	}
	if len(d.samples) > 0 {
		b.WriteString("\nSample rows (JSON):\n")
		for _, table := range d.tables {
			sample, ok := d.samples[table.Name]
			if !ok {
				continue
			}
			encoded, err := json.Marshal(sample)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", table.Name, encoded)
		}
	}
	return b.String()
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
