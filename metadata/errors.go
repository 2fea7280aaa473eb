package metadata

import "github.com/pkg/errors"

var (
	ErrNoSuchTable = errors.New("no such table")
	ErrTableExists = errors.New("table already exists")
)
