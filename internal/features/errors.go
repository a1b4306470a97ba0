package features

import (
	"errors"
	"fmt"
)

// ErrSchemaMismatch is matched by every SchemaMismatchError.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaMismatchError reports a column the model expects but the record lacks,
// or a record whose column order differs from the training order.
type SchemaMismatchError struct {
	Column   string
	Position int // -1 when the column is absent
}

func (e *SchemaMismatchError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("error in column names: %q is expected by the model but missing from the input record", e.Column)
	}
	return fmt.Sprintf("error in column order: position %d must be %q to match the model's training order", e.Position, e.Column)
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// InputError reports a user-supplied value the field cannot accept.
type InputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Field, e.Reason)
}
