package render

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shoptalk/shoptalk/internal/warehouse"
)

// RowObjects encodes the result set as a JSON array of row objects. Object
// keys are the column names in column order; Go maps would not preserve that
// order, so the objects are written by hand.
func RowObjects(rs warehouse.ResultSet) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for rowIndex, row := range rs.Rows {
		if rowIndex > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for colIndex, column := range rs.Columns {
			if colIndex > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(column)
			if err != nil {
				return nil, fmt.Errorf("encode column name %q: %w", column, err)
			}
			buf.Write(key)
			buf.WriteByte(':')

			var value any
			if colIndex < len(row) {
				value = row[colIndex]
			}
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, fmt.Errorf("encode value for column %q: %w", column, err)
			}
			buf.Write(encoded)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
