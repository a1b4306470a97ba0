package features

import "fmt"

// Normalize returns a record holding exactly the expected columns, in the
// expected order. A missing column fails with a SchemaMismatchError; no
// default is ever substituted.
func Normalize(r Record, expected []string) (Record, error) {
	if len(expected) == 0 {
		return Record{}, fmt.Errorf("expected column list is empty")
	}
	out := Record{
		columns: make([]string, 0, len(expected)),
		values:  make(map[string]float64, len(expected)),
	}
	for _, c := range expected {
		if _, dup := out.values[c]; dup {
			return Record{}, fmt.Errorf("expected column %q listed twice", c)
		}
		v, ok := r.values[c]
		if !ok {
			return Record{}, &SchemaMismatchError{Column: c, Position: -1}
		}
		out.set(c, v)
	}
	return out, nil
}

// CheckOrder verifies that actual lists exactly the expected columns in the
// same order.
func CheckOrder(actual, expected []string) error {
	present := make(map[string]struct{}, len(actual))
	for _, c := range actual {
		present[c] = struct{}{}
	}
	for _, c := range expected {
		if _, ok := present[c]; !ok {
			return &SchemaMismatchError{Column: c, Position: -1}
		}
	}
	if len(actual) != len(expected) {
		return fmt.Errorf("%w: record has %d columns, model expects %d", ErrSchemaMismatch, len(actual), len(expected))
	}
	for i, c := range expected {
		if actual[i] != c {
			return &SchemaMismatchError{Column: c, Position: i}
		}
	}
	return nil
}
