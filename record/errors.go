package record

import "github.com/pkg/errors"

var (
	ErrPageFull       = errors.New("page has no empty slot")
	ErrTupleNotFound  = errors.New("tuple not found on page")
	ErrSchemaMismatch = errors.New("tuple does not match schema")
)
