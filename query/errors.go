package query

import "github.com/pkg/errors"

var (
	ErrFieldNotFound = errors.New("field not found")
	ErrTypeMismatch  = errors.New("operands have different types")
)
