package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/shoptalk/shoptalk/internal/warehouse"
)

const (
	ShapeLine = "line"
	ShapeBar  = "bar"
)

type ChartResult struct {
	PNG   []byte
	Shape string
}

// Chart renders the result set as a PNG. The shape is picked from the data:
// a time-series line chart when the first column is date-like and there are
// more than three rows, a bar chart otherwise. There is no user-selectable
// chart type.
func Chart(question string, rs warehouse.ResultSet) (ChartResult, error) {
	if rs.RowCount() == 0 {
		return ChartResult{}, fmt.Errorf("result set has no rows to chart")
	}
	if len(rs.Columns) == 0 {
		return ChartResult{}, fmt.Errorf("result set has no columns to chart")
	}

	if times, ok := timeColumn(rs); ok && rs.RowCount() > 3 {
		png, err := renderLine(question, rs, times)
		if err != nil {
			return ChartResult{}, err
		}
		return ChartResult{PNG: png, Shape: ShapeLine}, nil
	}

	png, err := renderBar(question, rs)
	if err != nil {
		return ChartResult{}, err
	}
	return ChartResult{PNG: png, Shape: ShapeBar}, nil
}

func renderLine(question string, rs warehouse.ResultSet, times []time.Time) ([]byte, error) {
	series := make([]chart.Series, 0, len(rs.Columns)-1)
	for colIndex := 1; colIndex < len(rs.Columns); colIndex++ {
		yValues := make([]float64, 0, rs.RowCount())
		xValues := make([]time.Time, 0, rs.RowCount())
		ok := true
		for rowIndex, row := range rs.Rows {
			if colIndex >= len(row) {
				ok = false
				break
			}
			value, isNum := toFloat(row[colIndex])
			if !isNum {
				ok = false
				break
			}
			xValues = append(xValues, times[rowIndex])
			yValues = append(yValues, value)
		}
		if !ok {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    rs.Columns[colIndex],
			XValues: xValues,
			YValues: yValues,
		})
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no numeric column to plot against %q", rs.Columns[0])
	}

	graph := chart.Chart{
		Title:  chartTitle(question),
		Width:  1000,
		Height: 600,
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render line chart: %w", err)
	}
	return buf.Bytes(), nil
}

func renderBar(question string, rs warehouse.ResultSet) ([]byte, error) {
	valueCol := -1
	labelCol := -1
	for colIndex := range rs.Columns {
		if colIndex >= len(rs.Rows[0]) {
			break
		}
		if _, ok := toFloat(rs.Rows[0][colIndex]); ok {
			valueCol = colIndex
			break
		}
	}
	if valueCol < 0 {
		return nil, fmt.Errorf("no numeric column to chart")
	}
	if valueCol > 0 {
		labelCol = 0
	}

	bars := make([]chart.Value, 0, rs.RowCount())
	for rowIndex, row := range rs.Rows {
		if valueCol >= len(row) {
			return nil, fmt.Errorf("row %d is missing column %q", rowIndex, rs.Columns[valueCol])
		}
		value, ok := toFloat(row[valueCol])
		if !ok {
			return nil, fmt.Errorf("non-numeric value in column %q at row %d", rs.Columns[valueCol], rowIndex)
		}
		label := fmt.Sprintf("#%d", rowIndex+1)
		if labelCol >= 0 {
			label = fmt.Sprint(row[labelCol])
		}
		bars = append(bars, chart.Value{Label: label, Value: value})
	}

	graph := chart.BarChart{
		Title:    chartTitle(question),
		Width:    1000,
		Height:   600,
		BarWidth: 40,
		Bars:     bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

// timeColumn parses the first column as timestamps. It reports false on the
// first row that does not look like a date.
func timeColumn(rs warehouse.ResultSet) ([]time.Time, bool) {
	times := make([]time.Time, 0, rs.RowCount())
	for _, row := range rs.Rows {
		if len(row) == 0 {
			return nil, false
		}
		ts, ok := toTime(row[0])
		if !ok {
			return nil, false
		}
		times = append(times, ts)
	}
	return times, true
}

func toTime(value any) (time.Time, bool) {
	switch typed := value.(type) {
	case time.Time:
		return typed, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, typed); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	default:
		return 0, false
	}
}

func chartTitle(question string) string {
	question = strings.TrimSpace(question)
	runes := []rune(question)
	if len(runes) > 60 {
		question = string(runes[:60]) + "..."
	}
	return question
}
