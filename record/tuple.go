package record

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Tuple is one row: a value per schema field and, once stored, its RID.
// Integer fields hold int32 values and Varchar fields hold strings.
type Tuple struct {
	schema *Schema
	values []any
	rid    *RID
}

// NewTuple builds a tuple and checks every value against the schema.
func NewTuple(schema *Schema, values ...any) (*Tuple, error) {
	if len(values) != schema.NumFields() {
		return nil, errors.Wrapf(ErrSchemaMismatch, "got %d values for %d fields", len(values), schema.NumFields())
	}
	t := &Tuple{schema: schema, values: make([]any, len(values))}
	for i, v := range values {
		if err := t.Set(i, v); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tuple) Schema() *Schema {
	return t.schema
}

func (t *Tuple) Value(i int) any {
	return t.values[i]
}

// Get returns the value of the named field.
func (t *Tuple) Get(fieldName string) (any, bool) {
	i := t.schema.Index(fieldName)
	if i < 0 {
		return nil, false
	}
	return t.values[i], true
}

// Set stores v in field i after checking its type and length. Plain Go ints
// are accepted for Integer fields when they fit in an int32.
func (t *Tuple) Set(i int, v any) error {
	name := t.schema.Field(i)
	switch t.schema.FieldType(name) {
	case Integer:
		switch n := v.(type) {
		case int32:
			t.values[i] = n
		case int:
			if int(int32(n)) != n {
				return errors.Wrapf(ErrSchemaMismatch, "field %s: %d overflows int32", name, n)
			}
			t.values[i] = int32(n)
		default:
			return errors.Wrapf(ErrSchemaMismatch, "field %s: want int, got %T", name, v)
		}
	case Varchar:
		s, ok := v.(string)
		if !ok {
			return errors.Wrapf(ErrSchemaMismatch, "field %s: want string, got %T", name, v)
		}
		if int32(len(s)) > t.schema.FieldLength(name) {
			return errors.Wrapf(ErrSchemaMismatch, "field %s: %d bytes exceeds %d", name, len(s), t.schema.FieldLength(name))
		}
		t.values[i] = s
	}
	return nil
}

func (t *Tuple) Values() []any {
	out := make([]any, len(t.values))
	copy(out, t.values)
	return out
}

// RID returns the location of the tuple, or nil if it was never stored.
func (t *Tuple) RID() *RID {
	return t.rid
}

func (t *Tuple) SetRID(rid *RID) {
	t.rid = rid
}

// Equal compares values only.
func (t *Tuple) Equal(o *Tuple) bool {
	if len(t.values) != len(o.values) {
		return false
	}
	for i := range t.values {
		if t.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "\t")
}
