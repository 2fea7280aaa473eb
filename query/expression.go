package query

import (
	"fmt"

	"github.com/pkg/errors"

	"heapdb/record"
)

// Expression is either a constant or a reference to a field.
type Expression struct {
	constant  any
	fieldName *string
}

// NewExpressionWithValue wraps an int32, int or string constant. Plain ints
// are stored as int32.
func NewExpressionWithValue(value any) Expression {
	if n, ok := value.(int); ok {
		value = int32(n)
	}
	return Expression{
		constant: value,
	}
}

func NewExpressionWithFieldName(fieldName string) Expression {
	return Expression{
		fieldName: &fieldName,
	}
}

func (e Expression) IsFieldName() bool {
	return e.fieldName != nil
}

func (e Expression) AsConstant() any {
	return e.constant
}

func (e Expression) AsFieldName() string {
	return *e.fieldName
}

func (e Expression) Evaluate(t *record.Tuple) (any, error) {
	if e.fieldName == nil {
		return e.constant, nil
	}
	val, ok := t.Get(*e.fieldName)
	if !ok {
		return nil, errors.Wrap(ErrFieldNotFound, *e.fieldName)
	}
	return val, nil
}

func (e Expression) AppliesTo(schema *record.Schema) bool {
	if e.fieldName == nil {
		return true
	}
	return schema.Index(*e.fieldName) >= 0
}

func (e Expression) String() string {
	if e.fieldName != nil {
		return *e.fieldName
	}
	if s, ok := e.constant.(string); ok {
		return "'" + s + "'"
	}
	return fmt.Sprint(e.constant)
}
