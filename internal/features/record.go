package features

import (
	"encoding/json"
	"fmt"
)

// Record is a single-row CustomerFeatureRecord: named values with an
// explicit column order.
type Record struct {
	columns []string
	values  map[string]float64
}

// NewRecord builds a record from parallel column and value slices.
func NewRecord(columns []string, values []float64) (Record, error) {
	if len(columns) != len(values) {
		return Record{}, fmt.Errorf("record has %d columns but %d values", len(columns), len(values))
	}
	r := Record{values: make(map[string]float64, len(columns))}
	for i, c := range columns {
		if _, dup := r.values[c]; dup {
			return Record{}, fmt.Errorf("column %q appears twice", c)
		}
		r.set(c, values[i])
	}
	return r, nil
}

func (r *Record) set(column string, v float64) {
	if r.values == nil {
		r.values = make(map[string]float64)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = v
}

// Len returns the number of columns.
func (r Record) Len() int { return len(r.columns) }

// Columns returns a copy of the column order.
func (r Record) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Value returns the value of column.
func (r Record) Value(column string) (float64, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Values returns the values in column order.
func (r Record) Values() []float64 {
	out := make([]float64, len(r.columns))
	for i, c := range r.columns {
		out[i] = r.values[c]
	}
	return out
}

// Map returns a copy of the values keyed by column.
func (r Record) Map() map[string]float64 {
	out := make(map[string]float64, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Equal reports whether both records have the same columns, order and values.
func (r Record) Equal(o Record) bool {
	if len(r.columns) != len(o.columns) {
		return false
	}
	for i, c := range r.columns {
		if o.columns[i] != c || o.values[c] != r.values[c] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the record as an ordered list of column/value pairs.
func (r Record) MarshalJSON() ([]byte, error) {
	type cell struct {
		Column string  `json:"column"`
		Value  float64 `json:"value"`
	}
	cells := make([]cell, len(r.columns))
	for i, c := range r.columns {
		cells[i] = cell{Column: c, Value: r.values[c]}
	}
	return json.Marshal(cells)
}
