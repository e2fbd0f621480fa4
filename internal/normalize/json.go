package normalize

import (
	"encoding/json"
	"fmt"
	"io"
)

// DecodeJSONRows reads a top-level JSON array of objects. Numbers are kept as
// json.Number so integer scores and day serials survive intact. Elements that
// are not objects become empty rows and fail validation downstream.
func DecodeJSONRows(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	if len(items) == 0 {
		return nil, ErrNoRows
	}

	rows := make([]Row, 0, len(items))
	for _, it := range items {
		obj, _ := it.(map[string]any)
		rows = append(rows, Row(obj))
	}
	return rows, nil
}
